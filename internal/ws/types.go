package ws

const (
	// server -> client
	MsgState = "state"
	MsgError = "error"
)
