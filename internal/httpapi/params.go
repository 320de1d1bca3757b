package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"villageserver/internal/domain"
)

// parsePage reads the cursor-pagination query params: limit (1-100) and
// after (RFC3339 timestamp of the last item seen).
func parsePage(r *http.Request) (domain.Page, error) {
	var page domain.Page
	q := r.URL.Query()

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > domain.PageLimitMax {
			return domain.Page{}, domain.NewValidationError(map[string]string{"limit": "must be an integer between 1 and 100"})
		}
		page.Limit = n
	}

	if v := q.Get("after"); v != "" {
		ts, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return domain.Page{}, domain.NewValidationError(map[string]string{"after": "must be an RFC3339 timestamp"})
		}
		page.After = &ts
	}

	return page, nil
}

func pathID(r *http.Request, name string) (string, error) {
	id := r.PathValue(name)
	if id == "" {
		return "", domain.NewValidationError(map[string]string{name: "required"})
	}
	return id, nil
}
