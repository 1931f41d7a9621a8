package session

import (
	"fmt"
	"strings"

	"github.com/markdave123-py/pdfchat/internal/models"
)

const preamble = `Recibirás uno o más documentos PDF con información formal. Tu tarea es resumir y explicar el contenido en lenguaje claro, simple y humano.

Prioriza lo esencial y lo práctico, como si hablaras con alguien ocupado que no tiene tiempo de leer todo el documento.

Evita tecnicismos innecesarios y responde de forma concisa y comprensible.

También debes responder preguntas específicas sobre el contenido de los documentos.`

const (
	sectionRule  = "========================"
	documentRule = "------------------------"
)

// Composer renders the prompt sent on every turn. The whole document corpus is
// re-embedded each time; prior turns travel separately as chat history.
type Composer struct{}

func NewComposer() *Composer {
	return &Composer{}
}

// Compose builds the outbound prompt. docs must not be empty.
func (c *Composer) Compose(docs []models.Document, history []models.Message, message string) string {
	var prompt strings.Builder
	c.writePreamble(&prompt, docs)
	prompt.WriteString(c.DocumentsText(docs))
	c.writeInstructions(&prompt, docs, history)
	c.writeUserMessage(&prompt, message)
	return prompt.String()
}

// Overhead returns every part of the composed prompt except the document
// blocks and the user message, for token estimation.
func (c *Composer) Overhead(docs []models.Document, history []models.Message) string {
	var b strings.Builder
	c.writePreamble(&b, docs)
	c.writeInstructions(&b, docs, history)
	b.WriteString("Usuario: ")
	return b.String()
}

// DocumentsText renders one delimited, numbered block per document in order.
func (c *Composer) DocumentsText(docs []models.Document) string {
	var b strings.Builder
	for i, d := range docs {
		n := i + 1
		fmt.Fprintf(&b, "DOCUMENTO #%d: %s\n", n, d.Filename)
		b.WriteString(documentRule + "\n")
		b.WriteString(d.RawText)
		b.WriteString("\n" + documentRule + "\n")
		fmt.Fprintf(&b, "FIN DEL DOCUMENTO #%d\n\n", n)
	}
	return b.String()
}

func (c *Composer) writePreamble(prompt *strings.Builder, docs []models.Document) {
	prompt.WriteString(preamble)
	prompt.WriteString("\n\n")
	if len(docs) > 1 {
		fmt.Fprintf(prompt, "DOCUMENTOS PDF CARGADOS (%d):\n", len(docs))
	} else {
		prompt.WriteString("DOCUMENTO PDF CARGADO:\n")
	}
	prompt.WriteString(sectionRule + "\n")
}

func (c *Composer) writeInstructions(prompt *strings.Builder, docs []models.Document, history []models.Message) {
	prompt.WriteString(sectionRule + "\n\n")
	prompt.WriteString("INSTRUCCIONES:\n")
	prompt.WriteString("- Responde usando únicamente la información de los documentos anteriores.\n")
	prompt.WriteString("- Si la información no aparece en los documentos, dilo honestamente.\n")
	if len(docs) > 1 {
		prompt.WriteString("- Cada documento está separado y numerado; indica de cuál proviene cada dato.\n")
		prompt.WriteString("- Si la información está en varios documentos, puedes combinarla citando las fuentes.\n")
	}
	if len(history) > 0 {
		prompt.WriteString("- La conversación previa se envía como turnos de chat; mantén la coherencia con ella.\n")
	}
	prompt.WriteString("\n")
}

func (c *Composer) writeUserMessage(prompt *strings.Builder, message string) {
	prompt.WriteString("Usuario: ")
	prompt.WriteString(message)
}
