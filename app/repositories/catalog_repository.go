package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	gohttp "net/http"
	"net/url"
	"time"

	"github.com/vmcmoto/motoportal/app/models"
	"github.com/vmcmoto/motoportal/pkg/http"
	"github.com/vmcmoto/motoportal/pkg/validate"
)

// TokenSource yields the bearer token for admin calls. An empty token with a
// nil error sends the request unauthenticated.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func(ctx context.Context) (string, error)

func (f TokenFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

// CatalogRepository talks to the catalog REST backend.
type CatalogRepository struct {
	base    string
	tokens  TokenSource
	timeout time.Duration
	retries int
	client  *gohttp.Client
}

// Option configures a CatalogRepository.
type Option func(*CatalogRepository)

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) Option { return func(r *CatalogRepository) { r.timeout = d } }

// WithRetries sets the attempt count for reads. Mutations are sent once.
func WithRetries(n int) Option { return func(r *CatalogRepository) { r.retries = n } }

// WithClient routes calls through c instead of http.DefaultClient.
func WithClient(c *gohttp.Client) Option { return func(r *CatalogRepository) { r.client = c } }

// NewCatalogRepository returns a repository for the backend at base. Admin
// calls carry the bearer token from tokens; a nil source sends every call
// unauthenticated.
func NewCatalogRepository(base string, tokens TokenSource, opts ...Option) *CatalogRepository {
	r := &CatalogRepository{
		base:    base,
		tokens:  tokens,
		timeout: 30 * time.Second,
		retries: 1,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ── Models ───────────────────────────────────────────────────────────────────

func (r *CatalogRepository) ListModels(ctx context.Context) ([]models.Model, error) {
	var out []models.Model
	err := r.read(ctx, "models.list", "/models", &out)
	return out, err
}

func (r *CatalogRepository) SearchModels(ctx context.Context, q string) ([]models.Model, error) {
	var out []models.Model
	err := r.read(ctx, "models.search", "/models/search?q="+url.QueryEscape(q), &out)
	return out, err
}

func (r *CatalogRepository) GetModel(ctx context.Context, id int64) (models.Model, error) {
	var out models.Model
	err := r.read(ctx, "models.get", fmt.Sprintf("/models/%d", id), &out)
	return out, err
}

// ListVideos returns the model's video links in display order.
func (r *CatalogRepository) ListVideos(ctx context.Context, modelID int64) ([]models.Video, error) {
	var out []models.Video
	err := r.read(ctx, "videos.list", fmt.Sprintf("/models/%d/videos", modelID), &out)
	return out, err
}

// FilterModels returns the active models whose specs contain every value in
// specs, keyed by spec name. Matching ignores case. An empty filter matches
// nothing.
func (r *CatalogRepository) FilterModels(ctx context.Context, specs map[string]string) (models.FilterResult, error) {
	var out models.FilterResult
	if len(specs) == 0 {
		return out, nil
	}
	raw, err := json.Marshal(specs)
	if err != nil {
		return out, fmt.Errorf("repositories: encode filter: %w", err)
	}
	err = r.read(ctx, "models.filter", "/models/filter?specs="+url.QueryEscape(string(raw)), &out)
	return out, err
}

func (r *CatalogRepository) CreateModel(ctx context.Context, in models.ModelInput) (models.Model, error) {
	var out models.Model
	err := r.send(ctx, http.Post(r.url("/admin/models")).Name("models.create").Body(in), &out)
	return out, err
}

func (r *CatalogRepository) UpdateModel(ctx context.Context, id int64, in models.ModelInput) (models.Model, error) {
	var out models.Model
	err := r.send(ctx, http.Put(r.url(fmt.Sprintf("/admin/models/%d", id))).Name("models.update").Body(in), &out)
	return out, err
}

func (r *CatalogRepository) DeleteModel(ctx context.Context, id int64) error {
	return r.send(ctx, http.Delete(r.url(fmt.Sprintf("/admin/models/%d", id))).Name("models.delete"), nil)
}

// ── Photos ───────────────────────────────────────────────────────────────────

func (r *CatalogRepository) ListPhotos(ctx context.Context, modelID int64) ([]models.Photo, error) {
	var out []models.Photo
	req := http.Get(r.url(fmt.Sprintf("/admin/models/%d/photos", modelID))).
		Name("photos.list").
		Retry(r.retries, 500*time.Millisecond)
	err := r.send(ctx, req, &out)
	return out, err
}

func (r *CatalogRepository) UploadPhoto(ctx context.Context, modelID int64, up models.Upload) (models.Photo, error) {
	var out models.Photo
	req := http.Post(r.url(fmt.Sprintf("/admin/models/%d/photos", modelID))).
		Name("photos.upload").
		Multipart("file", up.Name, up.ContentType, up.Body)
	err := r.send(ctx, req, &out)
	return out, err
}

func (r *CatalogRepository) SetPhotoOrder(ctx context.Context, modelID int64, ids []int64) error {
	req := http.Put(r.url(fmt.Sprintf("/admin/models/%d/photos/order", modelID))).
		Name("photos.order").
		Body(ids)
	return r.send(ctx, req, nil)
}

func (r *CatalogRepository) SetPrimaryPhoto(ctx context.Context, photoID int64) error {
	return r.send(ctx, http.Put(r.url(fmt.Sprintf("/admin/photos/%d/primary", photoID))).Name("photos.primary"), nil)
}

func (r *CatalogRepository) DeletePhoto(ctx context.Context, photoID int64) error {
	return r.send(ctx, http.Delete(r.url(fmt.Sprintf("/admin/photos/%d", photoID))).Name("photos.delete"), nil)
}

// ── Specs ────────────────────────────────────────────────────────────────────

func (r *CatalogRepository) ListSpecs(ctx context.Context, modelID int64) ([]models.Spec, error) {
	var out []models.Spec
	err := r.read(ctx, "specs.list", fmt.Sprintf("/models/%d/specs", modelID), &out)
	return out, err
}

func (r *CatalogRepository) CreateSpec(ctx context.Context, modelID int64, in models.SpecInput) (models.Spec, error) {
	var out models.Spec
	req := http.Post(r.url(fmt.Sprintf("/admin/models/%d/specs", modelID))).Name("specs.create").Body(in)
	err := r.send(ctx, req, &out)
	return out, err
}

func (r *CatalogRepository) UpdateSpec(ctx context.Context, specID int64, in models.SpecInput) (models.Spec, error) {
	var out models.Spec
	req := http.Put(r.url(fmt.Sprintf("/admin/specs/%d", specID))).Name("specs.update").Body(in)
	err := r.send(ctx, req, &out)
	return out, err
}

func (r *CatalogRepository) DeleteSpec(ctx context.Context, specID int64) error {
	return r.send(ctx, http.Delete(r.url(fmt.Sprintf("/admin/specs/%d", specID))).Name("specs.delete"), nil)
}

// ── Portal content ───────────────────────────────────────────────────────────

// Sections returns the visibility of the news, regulations and employees
// sections.
func (r *CatalogRepository) Sections(ctx context.Context) (models.Sections, error) {
	out := models.Sections{}
	err := r.read(ctx, "sections.visibility", "/sections/visibility", &out)
	return out, err
}

// ListNews returns published news, newest first.
func (r *CatalogRepository) ListNews(ctx context.Context, q models.ListQuery) ([]models.News, error) {
	var out []models.News
	err := r.list(ctx, "news.list", "/news", q, &out)
	return out, err
}

func (r *CatalogRepository) GetNews(ctx context.Context, id int64) (models.News, error) {
	var out models.News
	err := r.read(ctx, "news.get", fmt.Sprintf("/news/%d", id), &out)
	return out, err
}

// ListRegulations returns published regulations, newest first.
func (r *CatalogRepository) ListRegulations(ctx context.Context, q models.ListQuery) ([]models.Regulation, error) {
	var out []models.Regulation
	err := r.list(ctx, "regulations.list", "/regulations", q, &out)
	return out, err
}

func (r *CatalogRepository) GetRegulation(ctx context.Context, id int64) (models.Regulation, error) {
	var out models.Regulation
	err := r.read(ctx, "regulations.get", fmt.Sprintf("/regulations/%d", id), &out)
	return out, err
}

// ListEmployees returns active employees in display order.
func (r *CatalogRepository) ListEmployees(ctx context.Context, q models.ListQuery) ([]models.Employee, error) {
	var out []models.Employee
	err := r.list(ctx, "employees.list", "/employees", q, &out)
	return out, err
}

func (r *CatalogRepository) GetEmployee(ctx context.Context, id int64) (models.Employee, error) {
	var out models.Employee
	err := r.read(ctx, "employees.get", fmt.Sprintf("/employees/%d", id), &out)
	return out, err
}

// ── Auth ─────────────────────────────────────────────────────────────────────

// Login exchanges the admin password for an access token. It is the only
// call sent without a bearer token.
func (r *CatalogRepository) Login(ctx context.Context, password string) (models.Token, error) {
	var out models.Token
	resp, err := r.prepare(ctx, http.Post(r.url("/admin/auth/login")).
		Name("auth.login").
		Body(models.LoginRequest{Password: password})).Send()
	if err != nil {
		return out, err
	}
	if err := resp.Throw(); err != nil {
		return out, err
	}
	return out, resp.JSON(&out)
}

// ── plumbing ─────────────────────────────────────────────────────────────────

func (r *CatalogRepository) url(path string) string {
	return r.base + path
}

func (r *CatalogRepository) prepare(ctx context.Context, req *http.Request) *http.Request {
	req = req.WithContext(ctx).Timeout(r.timeout)
	if r.client != nil {
		req = req.Using(r.client)
	}
	return req
}

// read performs an idempotent public GET with the configured retries.
func (r *CatalogRepository) read(ctx context.Context, name, path string, dest interface{}) error {
	req := http.Get(r.url(path)).Name(name).Retry(r.retries, 500*time.Millisecond)
	return r.send(ctx, req, dest)
}

// list validates q and reads path with q as the query string.
func (r *CatalogRepository) list(ctx context.Context, name, path string, q models.ListQuery, dest interface{}) error {
	if err := validate.Check(q); err != nil {
		return err
	}
	if qs := q.Encode(); qs != "" {
		path += "?" + qs
	}
	return r.read(ctx, name, path, dest)
}

// send sends an authenticated request and decodes a 2xx body into dest.
func (r *CatalogRepository) send(ctx context.Context, req *http.Request, dest interface{}) error {
	if r.tokens != nil {
		token, err := r.tokens.Token(ctx)
		if err != nil {
			return fmt.Errorf("repositories: token: %w", err)
		}
		req = req.Bearer(token)
	}

	resp, err := r.prepare(ctx, req).Send()
	if err != nil {
		return err
	}
	if err := resp.Throw(); err != nil {
		return err
	}
	if dest == nil || len(resp.Raw) == 0 {
		return nil
	}
	return resp.JSON(dest)
}
