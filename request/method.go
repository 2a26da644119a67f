package request

// Method is an HTTP request method.
type Method string

const (
	GET     Method = "GET"
	POST    Method = "POST"
	PATCH   Method = "PATCH"
	DELETE  Method = "DELETE"
	OPTIONS Method = "OPTIONS"
	CONNECT Method = "CONNECT"
	PUT     Method = "PUT"
	TRACE   Method = "TRACE"
	HEAD    Method = "HEAD"
)

func (m Method) String() string { return string(m) }
