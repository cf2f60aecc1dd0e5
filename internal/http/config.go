package http

// BasicAuth credentials protecting the API routes. Auth is disabled
// when the username is empty.
type BasicAuth struct {
	Username string
	Password string
}

// Configuration of the HTTP server.
type Configuration struct {
	Host       string `validate:"required"`
	Port       uint32 `validate:"required"`
	Key        string
	Cert       string
	Cacert     string
	Insecure   bool
	ServerName string
	BasicAuth  BasicAuth `yaml:"basic-auth"`
}
