package dto

type ContactRequest struct {
	Name    string `json:"name" validate:"required,min=1,max=255" example:"Jane Doe"`
	Email   string `json:"email" validate:"required,email" example:"jane@example.com"`
	Company string `json:"company,omitempty" validate:"omitempty,max=255" example:"Acme Inc"`
	Subject string `json:"subject" validate:"required,min=1,max=255" example:"Pricing question"`
	Message string `json:"message" validate:"required,min=1,max=5000" example:"We would like a demo."`
}

func (r ContactRequest) Validate() error {
	return GetValidator().Struct(r)
}

type ContactResponse struct {
	Success      bool   `json:"success" example:"true"`
	SubmissionID string `json:"submission_id" example:"sub_0190a6e2"`
}
