package frontend

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/paulasmuth/brokerd/catalog"
	"github.com/paulasmuth/brokerd/channel"
	"github.com/paulasmuth/brokerd/metrics"
	"github.com/paulasmuth/brokerd/utils/log"
)

const apiPrefix = "/api/v1/channels"

// maxMessageSize bounds a single append request body.
const maxMessageSize = 8 << 20

// Publisher receives every successfully appended message, e.g. to push it to
// websocket subscribers.
type Publisher interface {
	Publish(channelName string, msg channel.Message)
}

// PublisherFunc adapts a function to the Publisher interface.
type PublisherFunc func(channelName string, msg channel.Message)

func (f PublisherFunc) Publish(channelName string, msg channel.Message) {
	f(channelName, msg)
}

type DataService struct {
	catalogDir *catalog.Directory
	publisher  Publisher
}

func NewDataService(catalogDir *catalog.Directory, publisher Publisher) *DataService {
	return &DataService{
		catalogDir: catalogDir,
		publisher:  publisher,
	}
}

// Handler returns the HTTP routing for the channel API:
//
//	GET  /api/v1/channels
//	POST /api/v1/channels/{channel}/append
//	GET  /api/v1/channels/{channel}/fetch?offset=N&batch_size=M
func (s *DataService) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(apiPrefix, s.handleList)
	mux.HandleFunc(apiPrefix+"/", s.handleChannel)
	return mux
}

type listResponse struct {
	Channels []string `json:"channels"`
}

type appendResponse struct {
	Offset uint64 `json:"offset"`
}

type messageJSON struct {
	Offset     uint64 `json:"offset"`
	NextOffset uint64 `json:"next_offset"`
	Data       []byte `json:"data"`
}

type fetchResponse struct {
	Messages []messageJSON `json:"messages"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *DataService) handleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	writeJSON(w, http.StatusOK, listResponse{Channels: s.catalogDir.List()})
}

func (s *DataService) handleChannel(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, apiPrefix+"/")
	name, op, ok := strings.Cut(rest, "/")
	if !ok || name == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	id, err := channel.ChannelIDFromString(name)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	switch op {
	case "append":
		s.handleAppend(w, r, id)
	case "fetch":
		s.handleFetch(w, r, id)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *DataService) handleAppend(w http.ResponseWriter, r *http.Request, id channel.ChannelID) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	start := time.Now()

	msg, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxMessageSize))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "message too large")
		return
	}

	ch, err := s.catalogDir.GetOrCreate(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	offset, err := ch.Append(msg)
	if err != nil {
		log.Error("append to channel %s failed: %v", id.String(), err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	metrics.AppendsTotal.WithLabelValues(id.String()).Inc()
	metrics.AppendedBytesTotal.WithLabelValues(id.String()).Add(float64(len(msg)))
	metrics.AppendRequestDuration.Observe(time.Since(start).Seconds())

	if s.publisher != nil {
		s.publisher.Publish(id.String(), channel.Message{
			Offset:     offset,
			NextOffset: offset + uint64(channel.FrameLen(len(msg))),
			Data:       msg,
		})
	}

	writeJSON(w, http.StatusOK, appendResponse{Offset: offset})
}

func (s *DataService) handleFetch(w http.ResponseWriter, r *http.Request, id channel.ChannelID) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	start := time.Now()

	offset, err := strconv.ParseUint(r.URL.Query().Get("offset"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid offset")
		return
	}

	batchSize := 100
	if v := r.URL.Query().Get("batch_size"); v != "" {
		batchSize, err = strconv.Atoi(v)
		if err != nil || batchSize <= 0 {
			writeError(w, http.StatusBadRequest, "invalid batch_size")
			return
		}
	}

	ch, err := s.catalogDir.Get(id)
	if err != nil {
		var notFound catalog.ChannelNotFound
		if errors.As(err, &notFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	messages, err := ch.Fetch(offset, batchSize)
	if err != nil {
		switch channel.CodeOf(err) {
		case channel.EARG:
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			log.Error("fetch from channel %s failed: %v", id.String(), err)
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	resp := fetchResponse{Messages: make([]messageJSON, 0, len(messages))}
	for _, msg := range messages {
		resp.Messages = append(resp.Messages, messageJSON{
			Offset:     msg.Offset,
			NextOffset: msg.NextOffset,
			Data:       msg.Data,
		})
	}

	metrics.FetchRequestDuration.Observe(time.Since(start).Seconds())
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
