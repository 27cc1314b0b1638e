package testkit

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/vmcmoto/motoportal/app/models"
	"github.com/vmcmoto/motoportal/pkg/collection"
)

// FakeBackend is an in-memory catalog backend speaking the same REST contract
// as the real one. Operation names match the ones the repository labels its
// requests with ("photos.upload", "specs.create", ...), so tests can inject
// failures or hold a request in flight by name.
//
//	fb := testkit.NewFakeBackend(t)
//	m := fb.SeedModel(models.Model{Name: "Enduro 250"})
//	fb.FailNext("photos.order", http.StatusInternalServerError)
type FakeBackend struct {
	Password string

	mu       sync.Mutex
	nextID   int64
	models   map[int64]models.Model
	photos   map[int64][]models.Photo
	specs    map[int64][]models.Spec
	videos   map[int64][]models.Video
	news     map[int64]models.News
	regs     map[int64]models.Regulation
	staff    map[int64]models.Employee
	hidden   map[string]bool
	failures map[string][]int
	holds    map[string]*hold
	calls    map[string]int
	lastReq  map[string]string
	token    string

	server *httptest.Server
}

type hold struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

// NewFakeBackend starts the fake and closes it when t finishes.
func NewFakeBackend(t testing.TB) *FakeBackend {
	fb := &FakeBackend{
		Password: "secret",
		models:   map[int64]models.Model{},
		photos:   map[int64][]models.Photo{},
		specs:    map[int64][]models.Spec{},
		videos:   map[int64][]models.Video{},
		news:     map[int64]models.News{},
		regs:     map[int64]models.Regulation{},
		staff:    map[int64]models.Employee{},
		hidden:   map[string]bool{},
		failures: map[string][]int{},
		holds:    map[string]*hold{},
		calls:    map[string]int{},
		lastReq:  map[string]string{},
	}
	fb.server = httptest.NewServer(fb.routes())
	t.Cleanup(fb.server.Close)
	return fb
}

// URL is the base URL to configure the repository with.
func (fb *FakeBackend) URL() string { return fb.server.URL }

// Client returns an http.Client bound to the fake server.
func (fb *FakeBackend) Client() *http.Client { return fb.server.Client() }

// RequireToken makes every /admin route demand this bearer token.
func (fb *FakeBackend) RequireToken(token string) {
	fb.mu.Lock()
	fb.token = token
	fb.mu.Unlock()
}

// ─── Seeding / inspection ─────────────────────────────────────────────────────

func (fb *FakeBackend) SeedModel(m models.Model) models.Model {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	m.ID = fb.id()
	m.Photos, m.Specs = nil, nil
	fb.models[m.ID] = m
	return m
}

func (fb *FakeBackend) SeedPhoto(modelID int64, p models.Photo) models.Photo {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	p.ID = fb.id()
	p.ModelID = modelID
	if p.Filename == "" {
		p.Filename = fmt.Sprintf("photo_%d.jpg", p.ID)
	}
	p.FilePath = fmt.Sprintf("uploads/models/%d/%s", modelID, p.Filename)
	fb.photos[modelID] = append(fb.photos[modelID], p)
	return p
}

func (fb *FakeBackend) SeedSpec(modelID int64, s models.Spec) models.Spec {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	s.ID = fb.id()
	s.ModelID = modelID
	fb.specs[modelID] = append(fb.specs[modelID], s)
	return s
}

func (fb *FakeBackend) SeedVideo(modelID int64, v models.Video) models.Video {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	v.ID = fb.id()
	v.ModelID = modelID
	fb.videos[modelID] = append(fb.videos[modelID], v)
	return v
}

func (fb *FakeBackend) SeedNews(n models.News) models.News {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	n.ID = fb.id()
	fb.news[n.ID] = n
	return n
}

func (fb *FakeBackend) SeedRegulation(reg models.Regulation) models.Regulation {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	reg.ID = fb.id()
	fb.regs[reg.ID] = reg
	return reg
}

func (fb *FakeBackend) SeedEmployee(e models.Employee) models.Employee {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	e.ID = fb.id()
	fb.staff[e.ID] = e
	return e
}

// HideSection makes the public reads of section answer 404.
func (fb *FakeBackend) HideSection(section string) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.hidden[section] = true
}

func (fb *FakeBackend) Model(id int64) (models.Model, bool) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	m, ok := fb.models[id]
	return m, ok
}

func (fb *FakeBackend) Photos(modelID int64) []models.Photo {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]models.Photo(nil), fb.photos[modelID]...)
}

func (fb *FakeBackend) Specs(modelID int64) []models.Spec {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]models.Spec(nil), fb.specs[modelID]...)
}

// Calls returns how many requests reached op.
func (fb *FakeBackend) Calls(op string) int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.calls[op]
}

// LastRequestID returns the X-Request-ID header of the last op request.
func (fb *FakeBackend) LastRequestID(op string) string {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.lastReq[op]
}

// FailNext makes the next request to op answer status. Calls queue up.
func (fb *FakeBackend) FailNext(op string, status int) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.failures[op] = append(fb.failures[op], status)
}

// Hold blocks the next request to op until release is called. entered is
// closed once the request has arrived.
func (fb *FakeBackend) Hold(op string) (entered <-chan struct{}, release func()) {
	h := &hold{entered: make(chan struct{}), release: make(chan struct{})}
	fb.mu.Lock()
	fb.holds[op] = h
	fb.mu.Unlock()
	return h.entered, func() { h.once.Do(func() { close(h.release) }) }
}

func (fb *FakeBackend) id() int64 {
	fb.nextID++
	return fb.nextID
}

// ─── Routing ──────────────────────────────────────────────────────────────────

func (fb *FakeBackend) routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/models", fb.op("models.list", fb.listModels))
	r.Get("/models/search", fb.op("models.search", fb.searchModels))
	r.Get("/models/filter", fb.op("models.filter", fb.filterModels))
	r.Get("/models/{id}", fb.op("models.get", fb.getModel))
	r.Get("/models/{id}/specs", fb.op("specs.list", fb.listSpecs))
	r.Get("/models/{id}/videos", fb.op("videos.list", fb.listVideos))

	r.Get("/sections/visibility", fb.op("sections.visibility", fb.sections))
	r.Route("/news", func(r chi.Router) {
		r.Use(fb.visible(models.SectionNews))
		r.Get("/", fb.op("news.list", fb.listNews))
		r.Get("/{id}", fb.op("news.get", fb.getNews))
	})
	r.Route("/regulations", func(r chi.Router) {
		r.Use(fb.visible(models.SectionRegulations))
		r.Get("/", fb.op("regulations.list", fb.listRegulations))
		r.Get("/{id}", fb.op("regulations.get", fb.getRegulation))
	})
	r.Route("/employees", func(r chi.Router) {
		r.Use(fb.visible(models.SectionEmployees))
		r.Get("/", fb.op("employees.list", fb.listEmployees))
		r.Get("/{id}", fb.op("employees.get", fb.getEmployee))
	})

	r.Route("/admin", func(r chi.Router) {
		r.Post("/auth/login", fb.op("auth.login", fb.login))

		r.Group(func(r chi.Router) {
			r.Use(fb.auth)
			r.Post("/models", fb.op("models.create", fb.createModel))
			r.Put("/models/{id}", fb.op("models.update", fb.updateModel))
			r.Delete("/models/{id}", fb.op("models.delete", fb.deleteModel))

			r.Get("/models/{id}/photos", fb.op("photos.list", fb.listPhotos))
			r.Post("/models/{id}/photos", fb.op("photos.upload", fb.uploadPhoto))
			r.Put("/models/{id}/photos/order", fb.op("photos.order", fb.orderPhotos))
			r.Put("/photos/{id}/primary", fb.op("photos.primary", fb.primaryPhoto))
			r.Delete("/photos/{id}", fb.op("photos.delete", fb.deletePhoto))

			r.Post("/models/{id}/specs", fb.op("specs.create", fb.createSpec))
			r.Put("/specs/{id}", fb.op("specs.update", fb.updateSpec))
			r.Delete("/specs/{id}", fb.op("specs.delete", fb.deleteSpec))
		})
	})
	return r
}

// op wraps h with call counting, holds and failure injection.
func (fb *FakeBackend) op(name string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fb.mu.Lock()
		fb.calls[name]++
		fb.lastReq[name] = r.Header.Get("X-Request-ID")
		hd := fb.holds[name]
		delete(fb.holds, name)
		fb.mu.Unlock()

		if hd != nil {
			close(hd.entered)
			select {
			case <-hd.release:
			case <-r.Context().Done():
				return
			}
		}

		fb.mu.Lock()
		var status int
		if q := fb.failures[name]; len(q) > 0 {
			status = q[0]
			fb.failures[name] = q[1:]
		}
		fb.mu.Unlock()

		if status != 0 {
			writeDetail(w, status, "injected failure")
			return
		}
		h(w, r)
	}
}

func (fb *FakeBackend) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fb.mu.Lock()
		want := fb.token
		fb.mu.Unlock()
		if want != "" && r.Header.Get("Authorization") != "Bearer "+want {
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// visible answers 404 while section is hidden.
func (fb *FakeBackend) visible(section string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fb.mu.Lock()
			hidden := fb.hidden[section]
			fb.mu.Unlock()
			if hidden {
				writeDetail(w, http.StatusNotFound, fmt.Sprintf("Section %s is not available", section))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ─── Handlers ─────────────────────────────────────────────────────────────────

func (fb *FakeBackend) login(w http.ResponseWriter, r *http.Request) {
	var in models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Password != fb.Password {
		writeDetail(w, http.StatusUnauthorized, "Incorrect password")
		return
	}
	claims := jwt.RegisteredClaims{
		Subject:   "admin",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("fake-backend"))
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, models.Token{AccessToken: token, TokenType: "bearer", ExpiresIn: 3600})
}

func (fb *FakeBackend) listModels(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, fb.sortedModels(""))
}

func (fb *FakeBackend) searchModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, fb.sortedModels(r.URL.Query().Get("q")))
}

func (fb *FakeBackend) sortedModels(q string) []models.Model {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	out := make([]models.Model, 0, len(fb.models))
	for _, m := range fb.models {
		if collection.ContainsFold(q, m.Name, m.Description) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (fb *FakeBackend) getModel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	fb.mu.Lock()
	m, found := fb.models[id]
	m.Photos = append([]models.Photo(nil), fb.photos[id]...)
	m.Specs = append([]models.Spec(nil), fb.specs[id]...)
	fb.mu.Unlock()
	if !found {
		writeDetail(w, http.StatusNotFound, "Model not found")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (fb *FakeBackend) createModel(w http.ResponseWriter, r *http.Request) {
	var in models.ModelInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || strings.TrimSpace(in.Name) == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "name is required")
		return
	}
	now := time.Now().UTC()
	fb.mu.Lock()
	m := models.Model{ID: fb.id(), CreatedAt: &now}
	applyInput(&m, in)
	fb.models[m.ID] = m
	fb.mu.Unlock()
	writeJSON(w, http.StatusOK, m)
}

func (fb *FakeBackend) updateModel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in models.ModelInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	fb.mu.Lock()
	m, found := fb.models[id]
	if found {
		now := time.Now().UTC()
		applyInput(&m, in)
		m.UpdatedAt = &now
		fb.models[id] = m
	}
	fb.mu.Unlock()
	if !found {
		writeDetail(w, http.StatusNotFound, "Model not found")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (fb *FakeBackend) deleteModel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	fb.mu.Lock()
	_, found := fb.models[id]
	delete(fb.models, id)
	delete(fb.photos, id)
	delete(fb.specs, id)
	fb.mu.Unlock()
	if !found {
		writeDetail(w, http.StatusNotFound, "Model not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Model deleted"})
}

func (fb *FakeBackend) listPhotos(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, fb.Photos(id))
}

var uploadExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true}

func (fb *FakeBackend) uploadPhoto(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "No file selected")
		return
	}
	defer file.Close()
	if !uploadExtensions[strings.ToLower(filepath.Ext(header.Filename))] {
		writeDetail(w, http.StatusBadRequest, "Unsupported file format. Allowed: jpg, jpeg, png, webp")
		return
	}
	size, _ := io.Copy(io.Discard, file)

	fb.mu.Lock()
	if _, found := fb.models[id]; !found {
		fb.mu.Unlock()
		writeDetail(w, http.StatusNotFound, "Model not found")
		return
	}
	pid := fb.id()
	p := models.Photo{
		ID:               pid,
		ModelID:          id,
		Filename:         fmt.Sprintf("%d%s", pid, strings.ToLower(filepath.Ext(header.Filename))),
		OriginalFilename: header.Filename,
		FileSize:         size,
		SortOrder:        len(fb.photos[id]) + 1,
	}
	p.FilePath = fmt.Sprintf("uploads/models/%d/%s", id, p.Filename)
	fb.photos[id] = append(fb.photos[id], p)
	fb.mu.Unlock()

	writeJSON(w, http.StatusOK, p)
}

func (fb *FakeBackend) orderPhotos(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var ids []int64
	if err := json.NewDecoder(r.Body).Decode(&ids); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	fb.mu.Lock()
	byID := collection.KeyBy(fb.photos[id], func(p models.Photo) int64 { return p.ID })
	ordered := make([]models.Photo, 0, len(byID))
	for i, pid := range ids {
		if p, found := byID[pid]; found {
			p.SortOrder = i + 1
			ordered = append(ordered, p)
			delete(byID, pid)
		}
	}
	for _, p := range fb.photos[id] {
		if _, left := byID[p.ID]; left {
			ordered = append(ordered, p)
		}
	}
	fb.photos[id] = ordered
	fb.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"message": "Photo order updated"})
}

func (fb *FakeBackend) primaryPhoto(w http.ResponseWriter, r *http.Request) {
	pid, ok := pathID(w, r)
	if !ok {
		return
	}
	fb.mu.Lock()
	found := false
	for mid, list := range fb.photos {
		if !collection.Contains(list, func(p models.Photo) bool { return p.ID == pid }) {
			continue
		}
		found = true
		for i := range list {
			list[i].IsPrimary = list[i].ID == pid
		}
		fb.photos[mid] = list
	}
	fb.mu.Unlock()
	if !found {
		writeDetail(w, http.StatusNotFound, "Photo not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Primary photo set"})
}

func (fb *FakeBackend) deletePhoto(w http.ResponseWriter, r *http.Request) {
	pid, ok := pathID(w, r)
	if !ok {
		return
	}
	fb.mu.Lock()
	found := false
	for mid, list := range fb.photos {
		if i := collection.IndexOf(list, func(p models.Photo) bool { return p.ID == pid }); i >= 0 {
			fb.photos[mid] = append(list[:i:i], list[i+1:]...)
			found = true
		}
	}
	fb.mu.Unlock()
	if !found {
		writeDetail(w, http.StatusNotFound, "Photo not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Photo deleted"})
}

func (fb *FakeBackend) listSpecs(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, fb.Specs(id))
}

func (fb *FakeBackend) createSpec(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in models.SpecInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Name == "" || in.Value == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"detail": []map[string]string{{"msg": "spec_name and spec_value are required"}},
		})
		return
	}
	fb.mu.Lock()
	if _, found := fb.models[id]; !found {
		fb.mu.Unlock()
		writeDetail(w, http.StatusNotFound, "Model not found")
		return
	}
	s := specFromInput(fb.id(), id, in)
	fb.specs[id] = append(fb.specs[id], s)
	fb.mu.Unlock()
	writeJSON(w, http.StatusOK, s)
}

func (fb *FakeBackend) updateSpec(w http.ResponseWriter, r *http.Request) {
	sid, ok := pathID(w, r)
	if !ok {
		return
	}
	var in models.SpecInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	fb.mu.Lock()
	var (
		out   models.Spec
		found bool
	)
	for mid, list := range fb.specs {
		if i := collection.IndexOf(list, func(s models.Spec) bool { return s.ID == sid }); i >= 0 {
			out = specFromInput(sid, mid, in)
			list[i] = out
			found = true
		}
	}
	fb.mu.Unlock()
	if !found {
		writeDetail(w, http.StatusNotFound, "Spec not found")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (fb *FakeBackend) deleteSpec(w http.ResponseWriter, r *http.Request) {
	sid, ok := pathID(w, r)
	if !ok {
		return
	}
	fb.mu.Lock()
	found := false
	for mid, list := range fb.specs {
		if i := collection.IndexOf(list, func(s models.Spec) bool { return s.ID == sid }); i >= 0 {
			fb.specs[mid] = append(list[:i:i], list[i+1:]...)
			found = true
		}
	}
	fb.mu.Unlock()
	if !found {
		writeDetail(w, http.StatusNotFound, "Spec not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Spec deleted"})
}

func (fb *FakeBackend) listVideos(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	fb.mu.Lock()
	_, found := fb.models[id]
	list := collection.SortBy(fb.videos[id], func(a, b models.Video) bool { return a.SortOrder < b.SortOrder })
	fb.mu.Unlock()
	if !found {
		writeDetail(w, http.StatusNotFound, "Model not found")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (fb *FakeBackend) filterModels(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("specs")
	if raw == "" {
		writeJSON(w, http.StatusOK, map[string]any{"models": []models.Model{}, "filters": map[string]string{}})
		return
	}
	var filters map[string]string
	if err := json.Unmarshal([]byte(raw), &filters); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid JSON in specs")
		return
	}

	fb.mu.Lock()
	var out []models.Model
	for _, m := range fb.models {
		if m.IsActive && fb.matchesSpecs(m.ID, filters) {
			out = append(out, m)
		}
	}
	fb.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].Name < out[j].Name
	})
	if out == nil {
		out = []models.Model{}
	}
	writeJSON(w, http.StatusOK, models.FilterResult{Models: out, Total: len(out), FiltersApplied: filters})
}

// matchesSpecs runs with fb.mu held.
func (fb *FakeBackend) matchesSpecs(modelID int64, filters map[string]string) bool {
	for name, value := range filters {
		if value == "" {
			continue
		}
		hit := collection.Contains(fb.specs[modelID], func(s models.Spec) bool {
			return s.Name == name && collection.ContainsFold(value, s.Value)
		})
		if !hit {
			return false
		}
	}
	return true
}

func (fb *FakeBackend) sections(w http.ResponseWriter, _ *http.Request) {
	out := models.Sections{models.SectionNews: true, models.SectionRegulations: true, models.SectionEmployees: true}
	fb.mu.Lock()
	for name := range fb.hidden {
		out[name] = false
	}
	fb.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (fb *FakeBackend) listNews(w http.ResponseWriter, r *http.Request) {
	skip, limit, ok := paging(w, r, 20, 100)
	if !ok {
		return
	}
	q := r.URL.Query().Get("search")
	fb.mu.Lock()
	var out []models.News
	for _, n := range fb.news {
		if n.IsPublished && collection.ContainsFold(q, n.Title, n.Content, n.Summary) {
			out = append(out, n)
		}
	}
	fb.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return newer(out[i], out[j]) })
	writeJSON(w, http.StatusOK, page(out, skip, limit))
}

func (fb *FakeBackend) getNews(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	fb.mu.Lock()
	n, found := fb.news[id]
	fb.mu.Unlock()
	if !found || !n.IsPublished {
		writeDetail(w, http.StatusNotFound, "News not found")
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (fb *FakeBackend) listRegulations(w http.ResponseWriter, r *http.Request) {
	skip, limit, ok := paging(w, r, 20, 100)
	if !ok {
		return
	}
	q, category := r.URL.Query().Get("search"), r.URL.Query().Get("category")
	fb.mu.Lock()
	var out []models.Regulation
	for _, reg := range fb.regs {
		if !reg.IsPublished || (category != "" && reg.Category != category) {
			continue
		}
		if collection.ContainsFold(q, reg.Title, reg.Content, reg.Summary) {
			out = append(out, reg)
		}
	}
	fb.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return newer(out[i].News, out[j].News) })
	writeJSON(w, http.StatusOK, page(out, skip, limit))
}

func (fb *FakeBackend) getRegulation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	fb.mu.Lock()
	reg, found := fb.regs[id]
	fb.mu.Unlock()
	if !found || !reg.IsPublished {
		writeDetail(w, http.StatusNotFound, "Regulation not found")
		return
	}
	writeJSON(w, http.StatusOK, reg)
}

func (fb *FakeBackend) listEmployees(w http.ResponseWriter, r *http.Request) {
	skip, limit, ok := paging(w, r, 50, 200)
	if !ok {
		return
	}
	q, position := r.URL.Query().Get("search"), r.URL.Query().Get("position")
	fb.mu.Lock()
	var out []models.Employee
	for _, e := range fb.staff {
		if !e.IsActive || !collection.ContainsFold(position, e.Position) {
			continue
		}
		if collection.ContainsFold(q, e.FirstName, e.LastName, e.Position, e.Description) {
			out = append(out, e)
		}
	}
	fb.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.SortOrder != b.SortOrder {
			return a.SortOrder < b.SortOrder
		}
		if a.LastName != b.LastName {
			return a.LastName < b.LastName
		}
		return a.FirstName < b.FirstName
	})
	writeJSON(w, http.StatusOK, page(out, skip, limit))
}

func (fb *FakeBackend) getEmployee(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	fb.mu.Lock()
	e, found := fb.staff[id]
	fb.mu.Unlock()
	if !found || !e.IsActive {
		writeDetail(w, http.StatusNotFound, "Employee not found")
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

func applyInput(m *models.Model, in models.ModelInput) {
	m.Name = in.Name
	m.Category = in.Category
	m.Description = in.Description
	m.FullDescription = in.FullDescription
	m.Features = in.Features
	m.SalesScript = in.SalesScript
	m.IsActive = in.IsActive
	m.SortOrder = in.SortOrder
}

func specFromInput(id, modelID int64, in models.SpecInput) models.Spec {
	return models.Spec{
		ID:        id,
		ModelID:   modelID,
		Name:      in.Name,
		Value:     in.Value,
		Unit:      in.Unit,
		Category:  in.Category,
		SortOrder: in.SortOrder,
	}
}

// paging reads skip and limit, answering 422 when they are out of range.
func paging(w http.ResponseWriter, r *http.Request, defLimit, maxLimit int) (skip, limit int, ok bool) {
	skip, limit = 0, defLimit
	var err error
	if v := r.URL.Query().Get("skip"); v != "" {
		if skip, err = strconv.Atoi(v); err != nil || skip < 0 {
			writeDetail(w, http.StatusUnprocessableEntity, "skip must be >= 0")
			return 0, 0, false
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit < 1 || limit > maxLimit {
			writeDetail(w, http.StatusUnprocessableEntity, fmt.Sprintf("limit must be between 1 and %d", maxLimit))
			return 0, 0, false
		}
	}
	return skip, limit, true
}

func page[T any](items []T, skip, limit int) []T {
	if skip >= len(items) {
		return []T{}
	}
	items = items[skip:]
	if len(items) > limit {
		items = items[:limit]
	}
	return items
}

// newer orders by published_at then created_at, both descending. Missing
// dates sort last.
func newer(a, b models.News) bool {
	if c := compareTimes(a.PublishedAt, b.PublishedAt); c != 0 {
		return c > 0
	}
	if c := compareTimes(a.CreatedAt, b.CreatedAt); c != 0 {
		return c > 0
	}
	return a.ID > b.ID
}

func compareTimes(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return a.Compare(*b)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid id")
		return 0, false
	}
	return id, true
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
