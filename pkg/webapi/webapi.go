package webapi

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"

	bct "github.com/bctron/bctron/pkg"
	"github.com/bctron/bctron/pkg/conductor"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// WebAPI implements conductor.Service
type WebAPI struct {
	api      bct.API
	config   bct.Config
	upgrader *websocket.Upgrader
}

// interface guard ensures WebAPI implements conductor.Service
var _ conductor.Service = WebAPI{}

func NewWebAPI(config bct.Config, api bct.API) (WebAPI, error) {
	return WebAPI{
		api:    api,
		config: config,
		upgrader: &websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // renderers are served from anywhere
		},
	}, nil
}

func (t WebAPI) Run(started, stopped chan bool, stop chan context.Context) error {
	go func() {
		adminMux, pubMux := t.createRouters()

		// Start the admin server
		adminServer := &http.Server{Addr: t.config.WebAPI.AdminBind + ":" + t.config.WebAPI.AdminPort, Handler: adminMux}
		fmt.Printf("\nAdmin API listening on %s:%s", t.config.WebAPI.AdminBind, t.config.WebAPI.AdminPort)
		go func() {
			if err := adminServer.ListenAndServe(); err != http.ErrServerClosed {
				log.Fatalf("HTTP server admin ListenAndServe: %v", err)
			}
		}()

		// Start the public server
		pubServer := &http.Server{Addr: t.config.WebAPI.Bind + ":" + t.config.WebAPI.Port, Handler: pubMux}
		fmt.Printf("\nGrid API listening on %s:%s\n", t.config.WebAPI.Bind, t.config.WebAPI.Port)
		go func() {
			if err := pubServer.ListenAndServe(); err != http.ErrServerClosed {
				log.Fatalf("HTTP server public ListenAndServe: %v", err)
			}
		}()

		started <- true
		ctx := <-stop
		adminServer.Shutdown(ctx)
		pubServer.Shutdown(ctx)
		stopped <- true
	}()
	return nil
}

func (t WebAPI) createRouters() (adminMux *httprouter.Router, pubMux *httprouter.Router) {
	adminMux = httprouter.New() // Admin APIs
	pubMux = httprouter.New()   // Public (renderer) APIs

	// Admin APIs

	// POST { x, y, id, hash } /position -> { cell } apply a position by hand
	adminMux.POST("/position", t.applyPosition)

	// POST { actor: { x, y, id, hash }, .. } /heads -> [ cells ] replace the head set
	adminMux.POST("/heads", t.setHeads)

	// GET /stats -> { stats } grid and ingest counters
	adminMux.GET("/stats", t.getStats)

	// GET /metrics -> prometheus exposition of ingest and stream counters
	adminMux.Handler("GET", "/metrics", promhttp.Handler())

	// Renderer APIs

	// GET /grid -> { dim_x, dim_y, cells } the whole matrix
	pubMux.GET("/grid", t.getGrid)

	// GET /cell/:x/:y -> { cell } the live cell
	pubMux.GET("/cell/:x/:y", t.getCell)

	// GET /cell/:x/:y/history -> [ cells ] past occupants then the live cell
	pubMux.GET("/cell/:x/:y/history", t.getHistory)

	// GET /cell/:x/:y/qr.png -> explorer link for the occupant's hash
	pubMux.GET("/cell/:x/:y/qr.png", t.getCellQR)

	// GET /heads -> [ cells ] current heads
	pubMux.GET("/heads", t.getHeads)

	// GET /changes -> [ changes ] drain changes since the last call
	pubMux.GET("/changes", t.getChanges)

	// GET /stream -> websocket of changes as they happen
	pubMux.GET("/stream", t.streamChanges)

	return
}

func (t WebAPI) applyPosition(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		sendBadRequest(w, fmt.Sprintf("bad request body: %v", err))
		return
	}
	pos, err := bct.DecodePosition(body)
	if err != nil {
		sendError(w, "DecodePosition", err)
		return
	}
	cell, err := t.api.ApplyPosition(pos)
	if err != nil {
		sendError(w, "ApplyPosition", err)
		return
	}
	sendResponse(w, cell)
}

func (t WebAPI) setHeads(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		sendBadRequest(w, fmt.Sprintf("bad request body: %v", err))
		return
	}
	heads, err := bct.DecodeHeads(body)
	if err != nil {
		sendError(w, "DecodeHeads", err)
		return
	}
	err = t.api.SetHeads(heads)
	if err != nil {
		sendError(w, "SetHeads", err)
		return
	}
	sendResponse(w, t.api.GetHeads())
}

func (t WebAPI) getStats(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	sendResponse(w, t.api.Stats())
}

func (t WebAPI) getGrid(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	sendResponse(w, t.api.GetGrid())
}

func (t WebAPI) getCell(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	x, y, err := coords(p)
	if err != nil {
		sendError(w, "coords", err)
		return
	}
	cell, err := t.api.GetCell(x, y)
	if err != nil {
		sendError(w, "GetCell", err)
		return
	}
	sendResponse(w, cell)
}

// getHistory is what a renderer calls when the pointer hovers a cell
func (t WebAPI) getHistory(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	x, y, err := coords(p)
	if err != nil {
		sendError(w, "coords", err)
		return
	}
	history, err := t.api.GetHistory(x, y)
	if err != nil {
		sendError(w, "GetHistory", err)
		return
	}
	sendResponse(w, history)
}

func (t WebAPI) getCellQR(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	x, y, err := coords(p)
	if err != nil {
		sendError(w, "coords", err)
		return
	}
	cell, err := t.api.GetCell(x, y)
	if err != nil {
		sendError(w, "GetCell", err)
		return
	}
	if !cell.Occupied() {
		sendErrorResponse(w, 404, bct.NotFound, "cell is empty")
		return
	}

	qs := r.URL.Query()
	link := fmt.Sprintf(t.config.WebAPI.ExplorerURL, cell.OccupantHash)
	qr, err := GenerateQRCodePNG(link, 256, qs.Get("fg"), qs.Get("bg"))
	if err != nil {
		sendError(w, "GenerateQRCodePNG", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	// the occupant can change at any moment
	w.Header().Set("Cache-Control", "no-store")
	w.Write(qr)
}

func (t WebAPI) getHeads(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	sendResponse(w, t.api.GetHeads())
}

func (t WebAPI) getChanges(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	sendResponse(w, t.api.DrainChanges())
}
