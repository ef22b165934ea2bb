package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/example/facility-booking/internal/application"
)

// maxBodyBytes bounds request bodies; face registration images are the largest payload.
const maxBodyBytes = 8 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}

func principalOf(r *http.Request) application.Principal {
	principal, _ := PrincipalFromContext(r.Context())
	return principal
}

func queryValue(r *http.Request, key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}
