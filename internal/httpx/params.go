package httpx

import (
	"errors"
	"net/http"
	"strconv"
)

var ErrInvalidPathID = errors.New("invalid id")

// PathID parses a positive integer path value.
func PathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidPathID
	}
	return id, nil
}
