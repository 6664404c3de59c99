package testsnapshot

import (
	"bytes"
	"encoding/xml"
	"net/http"

	"github.com/okian/admstats/internal/domain/model"
)

const (
	responseHead = `<?xml version="1.0" encoding="utf-8"?>` +
		`<soap:Envelope xmlns:soap="http://www.w3.org/2003/05/soap-envelope">` +
		`<soap:Body><m:GetStudentsListResponse xmlns:m="http://localhost/ws"><m:return>`
	responseTail = `</m:return></m:GetStudentsListResponse></soap:Body></soap:Envelope>`
)

// Upstream answers the applications list request with the snapshot returned
// by source, wrapped in a SOAP envelope.
type Upstream struct {
	source   func() *model.Snapshot
	login    string
	password string
}

// NewUpstream creates an upstream stand-in. An empty login disables auth.
func NewUpstream(source func() *model.Snapshot, login, password string) *Upstream {
	return &Upstream{source: source, login: login, password: password}
}

func (u *Upstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if u.login != "" {
		login, password, ok := r.BasicAuth()
		if !ok || login != u.login || password != u.password {
			w.Header().Set("WWW-Authenticate", `Basic realm="upstream"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
	}

	var payload bytes.Buffer
	if err := model.EncodeUpstream(&payload, u.source()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var body bytes.Buffer
	body.WriteString(responseHead)
	if err := xml.EscapeText(&body, payload.Bytes()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	body.WriteString(responseTail)

	w.Header().Set("Content-Type", "application/soap+xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body.Bytes())
}
