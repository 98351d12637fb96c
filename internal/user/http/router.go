package http

import (
	"net/http"
	"time"

	"github.com/AlibekovAA/defis-users/internal/common/dto"
	commonhttp "github.com/AlibekovAA/defis-users/internal/common/http"
	"github.com/AlibekovAA/defis-users/internal/common/jwtverify"
	"github.com/AlibekovAA/defis-users/internal/common/logger"
	"github.com/AlibekovAA/defis-users/internal/common/mapper"
	"github.com/AlibekovAA/defis-users/internal/user/domain"
	"github.com/AlibekovAA/defis-users/internal/user/service"
)

type Config struct {
	JWTSecret      string
	RequestTimeout time.Duration
	Limiters       *commonhttp.RouteLimiters
}

type Handler struct {
	users  service.Service
	errors *commonhttp.ErrorHandler
	log    *logger.Logger
}

type batchRequest struct {
	Users []service.UserInput `json:"users"`
}

func NewHandler(users service.Service, cfg Config, log *logger.Logger) http.Handler {
	h := &Handler{
		users:  users,
		errors: commonhttp.NewErrorHandler(log),
		log:    log,
	}

	timeout := commonhttp.WithTimeout(cfg.RequestTimeout)
	auth := jwtverify.Middleware(cfg.JWTSecret, log)

	read := func(fn http.HandlerFunc) http.Handler {
		var next http.Handler = timeout(fn)
		if cfg.Limiters != nil {
			next = cfg.Limiters.Read.Middleware("read", nil)(next)
		}
		return next
	}
	write := func(fn http.HandlerFunc) http.Handler {
		var next http.Handler = timeout(fn)
		if cfg.Limiters != nil {
			next = cfg.Limiters.Write.Middleware("write", jwtverify.SubjectKey)(next)
		}
		return auth(next)
	}

	mux := http.NewServeMux()
	mux.Handle("GET /api/users", read(h.list))
	mux.Handle("GET /api/users/count", read(h.count))
	mux.Handle("GET /api/users/{id}", read(h.get))
	mux.Handle("GET /api/users/{id}/exists", read(h.exists))
	mux.Handle("POST /api/users", write(h.create))
	mux.Handle("POST /api/users/batch", write(h.createBatch))
	mux.Handle("PUT /api/users/{id}", write(h.update))
	mux.Handle("DELETE /api/users/{id}", write(h.delete))

	return mux
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (domain.ID, bool) {
	id, err := commonhttp.ParsePositiveID(r.PathValue("id"))
	if err != nil {
		h.errors.HandleError(w, r, err)
		return 0, false
	}
	return domain.ID(id), true
}

// list serves four lookups: ?username= filters by exact username, ?id=
// selects by identifiers, ?limit=&offset= pages through users ordered by ID
// and no query returns every user.
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var (
		users []domain.User
		err   error
	)
	switch {
	case query.Has("username"):
		users, err = h.users.FindByUsername(r.Context(), query.Get("username"))
	case query.Has("id"):
		ids, parseErr := commonhttp.ParseIDList(query["id"])
		if parseErr != nil {
			h.errors.HandleError(w, r, parseErr)
			return
		}
		users, err = h.users.ListByIDs(r.Context(), mapper.IDsFromInt64(ids))
	case query.Has("limit") || query.Has("offset"):
		offset, limit, parseErr := commonhttp.ParsePage(query)
		if parseErr != nil {
			h.errors.HandleError(w, r, parseErr)
			return
		}
		users, err = h.users.ListPage(r.Context(), offset, limit)
	default:
		users, err = h.users.List(r.Context())
	}
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	commonhttp.WriteJSON(w, http.StatusOK, mapper.UsersToDTO(users))
}

func (h *Handler) count(w http.ResponseWriter, r *http.Request) {
	n, err := h.users.Count(r.Context())
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	commonhttp.WriteJSON(w, http.StatusOK, dto.Count{Count: n})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	user, err := h.users.Get(r.Context(), id)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	commonhttp.WriteJSON(w, http.StatusOK, mapper.UserToDTO(user))
}

func (h *Handler) exists(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	found, err := h.users.Exists(r.Context(), id)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	commonhttp.WriteJSON(w, http.StatusOK, dto.Exists{ID: int64(id), Exists: found})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in service.UserInput
	if err := commonhttp.DecodeJSON(r, &in); err != nil {
		h.errors.HandleDecodeError(w, r, err)
		return
	}

	user, err := h.users.Create(r.Context(), in)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	commonhttp.WriteJSON(w, http.StatusCreated, mapper.UserToDTO(user))
}

func (h *Handler) createBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := commonhttp.DecodeJSON(r, &req); err != nil {
		h.errors.HandleDecodeError(w, r, err)
		return
	}

	users, err := h.users.CreateBatch(r.Context(), req.Users)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	commonhttp.WriteJSON(w, http.StatusCreated, mapper.UsersToDTO(users))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var in service.UserInput
	if err := commonhttp.DecodeJSON(r, &in); err != nil {
		h.errors.HandleDecodeError(w, r, err)
		return
	}

	user, err := h.users.Update(r.Context(), id, in)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	commonhttp.WriteJSON(w, http.StatusOK, mapper.UserToDTO(user))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.users.Delete(r.Context(), id); err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
