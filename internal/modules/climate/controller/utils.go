package controller

import (
	"fmt"
	"net/http"
	"time"
)

const dateLayout = "2006-01-02"

// welcomePage lists the API routes, one per line.
const welcomePage = "Available Routes:<br/>" +
	"/api/v1.0/precipitation<br/>" +
	"/api/v1.0/stations<br/>" +
	"/api/v1.0/tobs<br/>" +
	"/api/v1.0/&lt;start&gt;<br/>" +
	"/api/v1.0/&lt;start&gt;/&lt;end&gt;"

// parseDateParam returns the named path value. Values are passed through
// untouched unless strict is set, in which case they must be YYYY-MM-DD.
func parseDateParam(r *http.Request, name string, strict bool) (string, error) {
	v := r.PathValue(name)
	if !strict {
		return v, nil
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil || t.Format(dateLayout) != v {
		return "", fmt.Errorf("invalid '%s' (expected YYYY-MM-DD)", name)
	}
	return v, nil
}
