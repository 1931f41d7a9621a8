package session

import "errors"

// Error kinds. Call sites wrap these with fmt.Errorf("%w: ...") so errors.Is
// identifies the kind while the message stays specific.
var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrSessionExpired      = errors.New("session expired")
	ErrNoDocumentLoaded    = errors.New("no document loaded in this session")
	ErrDocumentNotFound    = errors.New("document not found")
	ErrDuplicateFilename   = errors.New("a document with this name already exists in the session")
	ErrFileTooLarge        = errors.New("file too large")
	ErrInvalidFileType     = errors.New("invalid file type, only PDF files are allowed")
	ErrExtractionFailed    = errors.New("could not extract text from document")
	ErrExtractionTimeout   = errors.New("document extraction timed out")
	ErrTokenBudgetExceeded = errors.New("token budget exceeded")
	ErrCompletionFailed    = errors.New("completion failed")
	ErrCompletionTimeout   = errors.New("completion timed out")
	ErrEmptyMessage        = errors.New("message is empty")
)

var kinds = []struct {
	err  error
	code string
}{
	{ErrSessionNotFound, "SESSION_NOT_FOUND"},
	{ErrSessionExpired, "SESSION_EXPIRED"},
	{ErrNoDocumentLoaded, "NO_DOCUMENT_LOADED"},
	{ErrDocumentNotFound, "DOCUMENT_NOT_FOUND"},
	{ErrDuplicateFilename, "DUPLICATE_FILENAME"},
	{ErrFileTooLarge, "FILE_TOO_LARGE"},
	{ErrInvalidFileType, "INVALID_FILE_TYPE"},
	{ErrExtractionFailed, "EXTRACTION_FAILED"},
	{ErrExtractionTimeout, "EXTRACTION_TIMEOUT"},
	{ErrTokenBudgetExceeded, "TOKEN_BUDGET_EXCEEDED"},
	{ErrCompletionFailed, "COMPLETION_FAILED"},
	{ErrCompletionTimeout, "COMPLETION_TIMEOUT"},
	{ErrEmptyMessage, "EMPTY_MESSAGE"},
}

// KindOf returns the stable error code of err, or INTERNAL_ERROR when err
// does not belong to the taxonomy.
func KindOf(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.code
		}
	}
	return "INTERNAL_ERROR"
}
