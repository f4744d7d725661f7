package verification

// Purpose tags what a token may be redeemed for.
type Purpose string

const (
	PurposeVerifyEmail Purpose = "verify_email"
	PurposeLogin       Purpose = "login"
)

// Valid reports whether p is a known purpose.
func (p Purpose) Valid() bool {
	switch p {
	case PurposeVerifyEmail, PurposeLogin:
		return true
	default:
		return false
	}
}

func (p Purpose) String() string { return string(p) }
