package dto

type SignupRequest struct {
	OrganizationName    string `json:"organizationName" validate:"required"`
	HasMultipleBranches bool   `json:"hasMultipleBranches"`
	InitialBranchName   string `json:"initialBranchName" validate:"required"`
	Email               string `json:"email" validate:"required,email"`
	MobileNumber        string `json:"mobileNumber" validate:"required"`
	Address             string `json:"address"`
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type SignInResponse struct {
	Token         string   `json:"token"`
	UserID        string   `json:"userId"`
	DisplayName   string   `json:"displayName"`
	Role          string   `json:"role"`
	Organizations []string `json:"organizations"`
}

type VerifyAccountRequest struct {
	VerificationToken string `json:"verificationToken" validate:"required"`
	Password          string `json:"password" validate:"required,min=8"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ForgotPasswordMobileRequest struct {
	Mobile string `json:"mobile" validate:"required"`
}

type OTPRequest struct {
	Mobile  string `json:"mobile" validate:"required"`
	Purpose string `json:"purpose" validate:"required,oneof=login signup reset"`
}

type ResetPasswordRequest struct {
	Mobile   string `json:"mobile" validate:"required"`
	OTP      string `json:"otp" validate:"required,len=6,numeric"`
	Password string `json:"password" validate:"required,min=8"`
}

type ResetPasswordEmailRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

type SessionResponse struct {
	UserID         string `json:"userId"`
	OrganizationID string `json:"organizationId"`
	Role           string `json:"role"`
}
