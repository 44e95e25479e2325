// Package har reads HTTP Archive (HAR 1.2) captures as URL sources.
package har

// HAR is the top-level archive document.
type HAR struct {
	Log *Log `json:"log"`
}

// Log holds the archived entries. Fields unused for URL extraction are not decoded.
type Log struct {
	Version string   `json:"version"`
	Creator *Creator `json:"creator"`
	Entries []*Entry `json:"entries"`
}

// Creator describes the application that created the archive
type Creator struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Entry is one archived request/response pair.
type Entry struct {
	StartedDateTime string    `json:"startedDateTime"`
	Request         *Request  `json:"request"`
	Response        *Response `json:"response"`
}

type Request struct {
	Method string `json:"method"`
	URL    string `json:"url"`
}

type Response struct {
	Status int `json:"status"`
}
