package hoxy

// Route binds a virtual host to either a backend target url or a local
// directory of static assets. Exactly one of Target and Dir must be set.
// When RedirectPlain is set, requests arriving on the plaintext listener
// are answered with a redirect to the encrypted listener instead of being
// forwarded.
type Route struct {
	Host          string `json:"host" yaml:"host"`
	Target        string `json:"target,omitempty" yaml:"target,omitempty"`
	Dir           string `json:"dir,omitempty" yaml:"dir,omitempty"`
	RedirectPlain bool   `json:"redirect_plain,omitempty" yaml:"redirect_plain,omitempty"`
}

// CertBinding points a virtual host at its certificate chain and private
// key on disk. The files are written and renewed by an external issuer,
// hoxy only ever reads them.
type CertBinding struct {
	Host     string `json:"host" yaml:"host"`
	CertFile string `json:"cert_file" yaml:"cert_file"`
	KeyFile  string `json:"key_file" yaml:"key_file"`
}
