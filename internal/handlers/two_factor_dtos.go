package handlers

// Two-factor DTOs

// TwoFactorSetupResponse carries a freshly provisioned secret. QRCode is a
// PNG data URL of OTPAuthURL.
type TwoFactorSetupResponse struct {
	Secret     string `json:"secret"`
	QRCode     string `json:"qrCode"`
	OTPAuthURL string `json:"otpauthUrl"`
}

// TwoFactorCodeRequest is the body of the verify and disable endpoints
type TwoFactorCodeRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}
