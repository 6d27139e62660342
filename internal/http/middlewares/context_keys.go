package middlewares

const (
	CtxRequestID = "request_id"

	CtxUserID = "auth.userID"
	CtxEmail  = "auth.email"
	CtxRole   = "auth.role"
)
