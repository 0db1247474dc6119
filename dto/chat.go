package dto

type ChatRequest struct {
	Message string `json:"message" validate:"required,min=1,max=4000" example:"How do I reset my password?"`
}

func (r ChatRequest) Validate() error {
	return GetValidator().Struct(r)
}

type ChatResponse struct {
	Response string `json:"response" example:"You can reset your password from the account page."`
}

type FAQRequest struct {
	Question string `json:"question" validate:"required,min=1,max=2000" example:"What plans do you offer?"`
}

func (r FAQRequest) Validate() error {
	return GetValidator().Struct(r)
}

type FAQResponse struct {
	Answer string `json:"answer" example:"We offer Starter, Growth and Enterprise plans."`
}

// CompletionResult carries the upstream answer plus the metadata the
// analytics row needs.
type CompletionResult struct {
	Text       string
	Model      string
	DurationMs int64
}
