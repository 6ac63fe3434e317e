package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/shouni/gemini-pose-studio/pkg/canvas"
	"github.com/shouni/gemini-pose-studio/pkg/domain"
	"github.com/shouni/gemini-pose-studio/pkg/imgutil"
	"github.com/shouni/gemini-pose-studio/pkg/source"
	"github.com/shouni/gemini-pose-studio/pkg/studio"
)

const multipartMemory = 32 << 20

// Server は Controller を JSON over HTTP で公開します。
type Server struct {
	ctrl *studio.Controller
}

// New は Server を作成します。
func New(ctrl *studio.Controller) *Server {
	return &Server{ctrl: ctrl}
}

// Handler はルーティング済みの http.Handler を返します。
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("GET /api/character", s.handleCharacter)
	mux.HandleFunc("POST /api/character", s.handleUpload)
	mux.HandleFunc("POST /api/character/url", s.handleUploadURL)
	mux.HandleFunc("POST /api/canvas/pointer", s.handlePointer)
	mux.HandleFunc("PUT /api/canvas/brush", s.handleBrush)
	mux.HandleFunc("POST /api/canvas/clear", s.handleClear)
	mux.HandleFunc("GET /api/canvas/snapshot", s.handleSnapshot)
	mux.HandleFunc("POST /api/generate", s.handleGenerate)
	mux.HandleFunc("GET /api/result", s.handleResult)
	return logRequests(mux)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.stateBody())
}

func (s *Server) handleCharacter(w http.ResponseWriter, r *http.Request) {
	st := s.ctrl.State()
	if st.Character == nil {
		writeError(w, http.StatusNotFound, "not_found", "キャラクター画像がアップロードされていません")
		return
	}
	writeImage(w, *st.Character)
}

// handleUpload は multipart (field "image")、JSON の data URL、生のバイト列のいずれかを受け付けます。
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	var (
		info domain.CharacterInfo
		err  error
	)
	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
		file, header, ferr := r.FormFile("image")
		if ferr != nil {
			writeError(w, http.StatusBadRequest, "bad_request", ferr.Error())
			return
		}
		defer file.Close()
		info, err = s.ctrl.UploadCharacter(ctx, file, header.Header.Get("Content-Type"))
	case "application/json":
		var body struct {
			DataURL string `json:"data_url"`
		}
		if derr := json.NewDecoder(r.Body).Decode(&body); derr != nil {
			writeError(w, http.StatusBadRequest, "bad_request", derr.Error())
			return
		}
		info, err = s.ctrl.UploadDataURL(ctx, body.DataURL)
	default:
		info, err = s.ctrl.UploadCharacter(ctx, r.Body, mediaType)
	}

	if err != nil {
		s.writeUploadError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleUploadURL(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.URL == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "url is required")
		return
	}
	info, err := s.ctrl.LoadCharacterFromURL(r.Context(), body.URL)
	if err != nil {
		s.writeUploadError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) writeUploadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, studio.ErrUploadSuperseded):
		writeError(w, http.StatusConflict, "superseded", err.Error())
	case errors.Is(err, source.ErrTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "too_large", err.Error())
	case errors.Is(err, imgutil.ErrNotImage), errors.Is(err, source.ErrUnsupportedURI):
		writeError(w, http.StatusUnsupportedMediaType, "unsupported", err.Error())
	default:
		writeError(w, http.StatusBadGateway, "upload_failed", err.Error())
	}
}

type pointerRequest struct {
	Type string `json:"type"`
	canvas.PointerEvent
}

func (s *Server) handlePointer(w http.ResponseWriter, r *http.Request) {
	var req pointerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	tr := s.ctrl.Canvas()
	var err error
	switch req.Type {
	case "down":
		err = tr.PointerDown(req.PointerEvent)
	case "move":
		err = tr.PointerMove(req.PointerEvent)
	case "up":
		tr.PointerUp()
	case "leave":
		tr.PointerLeave()
	default:
		writeError(w, http.StatusBadRequest, "bad_request", "type must be one of down, move, up, leave")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"stroking": tr.Stroking()})
}

type brushBody struct {
	Color string      `json:"color"`
	Width float64     `json:"width"`
	Mode  canvas.Mode `json:"mode"`
}

func (s *Server) handleBrush(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Color *string      `json:"color"`
		Width *float64     `json:"width"`
		Mode  *canvas.Mode `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	tr := s.ctrl.Canvas()
	b := tr.Brush()
	if req.Color != nil {
		b.Color = *req.Color
	}
	if req.Width != nil {
		b.Width = *req.Width
	}
	if req.Mode != nil {
		b.Mode = *req.Mode
	}
	if err := tr.SetBrush(b); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_brush", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, brushBody(b))
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.ctrl.Canvas().Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	img, err := s.ctrl.Pose()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "snapshot_failed", err.Error())
		return
	}
	writeImage(w, img)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	_, err := s.ctrl.Generate(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, s.stateBody())
	case errors.Is(err, studio.ErrGenerationInProgress):
		writeError(w, http.StatusConflict, "in_progress", err.Error())
	default:
		f := domain.AsFailure(err)
		writeError(w, http.StatusUnprocessableEntity, f.Kind.String(), f.Message)
	}
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	st := s.ctrl.State()
	if st.Result == nil || st.Result.Image == nil {
		writeError(w, http.StatusNotFound, "not_found", "生成結果がありません")
		return
	}
	writeImage(w, *st.Result.Image)
}

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type stateBody struct {
	Phase        studio.Phase          `json:"phase"`
	Outcome      studio.Outcome        `json:"outcome"`
	Generating   bool                  `json:"generating"`
	Character    *domain.CharacterInfo `json:"character,omitempty"`
	Caption      string                `json:"caption,omitempty"`
	ResultMime   string                `json:"result_mime_type,omitempty"`
	FinishReason string                `json:"finish_reason,omitempty"`
	Error        *errorBody            `json:"error,omitempty"`
	Brush        brushBody             `json:"brush"`
	Stroking     bool                  `json:"stroking"`
}

func (s *Server) stateBody() stateBody {
	st := s.ctrl.State()
	tr := s.ctrl.Canvas()
	body := stateBody{
		Phase:      st.Phase,
		Outcome:    st.Outcome,
		Generating: st.Generating(),
		Character:  st.CharacterInfo,
		Brush:      brushBody(tr.Brush()),
		Stroking:   tr.Stroking(),
	}
	if st.Result != nil {
		body.Caption = st.Result.Caption
		body.FinishReason = st.Result.FinishReason
		if st.Result.Image != nil {
			body.ResultMime = st.Result.Image.MimeType
		}
	}
	if st.Failure != nil {
		body.Error = &errorBody{Kind: st.Failure.Kind.String(), Message: st.Failure.Message}
	}
	return body
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("レスポンスの書き込みに失敗しました", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, map[string]errorBody{"error": {Kind: kind, Message: message}})
}

func writeImage(w http.ResponseWriter, img domain.EncodedImage) {
	w.Header().Set("Content-Type", img.MimeType)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img.Data)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.InfoContext(r.Context(), "request",
			"method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start))
	})
}
