package result

import "net/http"

var statusTable = map[Kind]int{
	Success:    http.StatusOK,
	BadRequest: http.StatusBadRequest,
	NotFound:   http.StatusNotFound,
	Failed:     http.StatusUnprocessableEntity,
}

// StatusFor maps an outcome kind to its HTTP status. Unknown kinds are
// treated as Failed.
func StatusFor(k Kind) int {
	if code, ok := statusTable[k]; ok {
		return code
	}
	return http.StatusUnprocessableEntity
}
