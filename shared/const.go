package shared

const (
	UserID = "user_id"

	ActionSignUp  = "signup"
	ActionSignIn  = "signin"
	ActionSignOut = "signout"
	ActionSession = "session"

	ActionValidate = "validate"
	ActionProfile  = "profile"
	ActionLogout   = "logout"

	AnalyticsKindChat = "chat"
	AnalyticsKindFAQ  = "faq"
)
