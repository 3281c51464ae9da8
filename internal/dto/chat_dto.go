package dto

// SendChatRequest is the /api/chat/v1 body. File text arrives already
// extracted; this service does not parse uploads.
type SendChatRequest struct {
	Question    string `json:"question" validate:"required"`
	FileContext string `json:"file_context"`
}

// ChatCompletedMessage is the payload published after a stream ends,
// consumed in the background for cache and memory writes.
type ChatCompletedMessage struct {
	ExchangeID string `json:"exchange_id"`
	EmployeeID string `json:"employee_id"`
	Question   string `json:"question"`
	Answer     string `json:"answer"`
	Intent     string `json:"intent"`
}
