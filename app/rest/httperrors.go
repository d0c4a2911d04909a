// Package rest provides common helpers of the http layer
package rest

import (
	"fmt"
	"net/http"
	"net/url"
	"runtime"
	"strings"

	"github.com/go-chi/render"
	log "github.com/go-pkgz/lgr"
	R "github.com/go-pkgz/rest"
)

// errors codes reported to the web view
const (
	ErrInternal       = 0 // any internal error
	ErrBadRequest     = 1 // request can't be parsed
	ErrUnknownAction  = 2 // xhr action not supported
	ErrOptionsFailed  = 4 // options not saved
	ErrIndexingFailed = 5 // rebuild or delete failed
)

// SendErrorJSON makes {error: blah, details: blah, code: 42} json body and responds with error code
func SendErrorJSON(w http.ResponseWriter, r *http.Request, httpStatusCode int, err error, details string, errCode int) {
	log.Printf("[WARN] %s", errDetailsMsg(r, httpStatusCode, err, details, errCode))
	render.Status(r, httpStatusCode)
	render.JSON(w, r, R.JSON{"error": err.Error(), "details": details, "code": errCode})
}

func errDetailsMsg(r *http.Request, httpStatusCode int, err error, details string, errCode int) string {
	q := r.URL.String()
	if qun, e := url.QueryUnescape(q); e == nil {
		q = qun
	}

	srcFileInfo := ""
	if pc, file, line, ok := runtime.Caller(2); ok {
		fnameElems := strings.Split(file, "/")
		if len(fnameElems) > 3 {
			fnameElems = fnameElems[len(fnameElems)-3:]
		}
		funcNameElems := strings.Split(runtime.FuncForPC(pc).Name(), "/")
		srcFileInfo = fmt.Sprintf(" [caused by %s:%d %s]", strings.Join(fnameElems, "/"),
			line, funcNameElems[len(funcNameElems)-1])
	}

	remoteIP := r.RemoteAddr
	if pos := strings.LastIndex(remoteIP, ":"); pos >= 0 {
		remoteIP = remoteIP[:pos]
	}
	if err == nil {
		err = fmt.Errorf("no error")
	}
	return fmt.Sprintf("%s - %v - %d (%d) - %s - %s%s", details, err, httpStatusCode, errCode, remoteIP, q, srcFileInfo)
}
