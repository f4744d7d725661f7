package authapi

type signupRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
	Name  string `json:"name"`
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

type userResponse struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Email string  `json:"email"`
	Image *string `json:"image"`
}

type signupResponse struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`
}

type loginResponse struct {
	Message string       `json:"message"`
	User    userResponse `json:"user"`
}

type meResponse struct {
	User userResponse `json:"user"`
}

type homeResponse struct {
	Message string       `json:"message"`
	User    userResponse `json:"user"`
}

type loginPageResponse struct {
	Message   string   `json:"message"`
	Providers []string `json:"providers"`
}
