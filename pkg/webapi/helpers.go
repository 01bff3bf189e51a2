package webapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	bct "github.com/bctron/bctron/pkg"
	"github.com/julienschmidt/httprouter"
)

var httpCodeForError = map[string]int{
	string(bct.BadRequest):     400,
	string(bct.OutOfRange):     400,
	string(bct.MalformedEvent): 400,
	string(bct.NotAvailable):   503,
	string(bct.NotFound):       404,
	string(bct.UnknownError):   500,
}

func HttpStatusForError(code bct.ErrorCode) int {
	status, found := httpCodeForError[string(code)]
	if !found {
		status = http.StatusInternalServerError
	}
	return status
}

// coords reads the :x and :y route params.
func coords(p httprouter.Params) (int, int, error) {
	x, err := strconv.Atoi(p.ByName("x"))
	if err != nil {
		return 0, 0, bct.NewErr(bct.BadRequest, "x invalid, must be an integer")
	}
	y, err := strconv.Atoi(p.ByName("y"))
	if err != nil {
		return 0, 0, bct.NewErr(bct.BadRequest, "y invalid, must be an integer")
	}
	return x, y, nil
}

func sendResponse(w http.ResponseWriter, payload any) {
	// note: w.Header after this, so we can call sendError
	b, err := json.Marshal(payload)
	if err != nil {
		sendErrorResponse(w, http.StatusInternalServerError, "marshal", fmt.Sprintf("in json.Marshal: %s", err.Error()))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store") // do not cache (Browsers cache GET forever by default)
	w.Write(b)
}

func sendBadRequest(w http.ResponseWriter, message string) {
	sendErrorResponse(w, http.StatusBadRequest, bct.BadRequest, message)
}

func sendError(w http.ResponseWriter, where string, err error) {
	var info *bct.ErrorInfo
	if errors.As(err, &info) {
		status := HttpStatusForError(info.Code)
		message := fmt.Sprintf("%s: %s", where, info.Message)
		sendErrorResponse(w, status, info.Code, message)
	} else {
		message := fmt.Sprintf("%s: %s", where, err.Error())
		sendErrorResponse(w, http.StatusInternalServerError, bct.UnknownError, message)
	}
}

func sendErrorResponse(w http.ResponseWriter, statusCode int, code bct.ErrorCode, message string) {
	log.Printf("[!] %s: %s\n", code, message)
	// would prefer to use json.Marshal, but this avoids the need
	// to handle encoding errors arising from json.Marshal itself!
	payload := fmt.Sprintf("{\"error\":{\"code\":%q,\"message\":%q}}", code, message)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store") // do not cache (Browsers cache GET forever by default)
	w.WriteHeader(statusCode)
	w.Write([]byte(payload))
}
