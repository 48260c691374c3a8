// Package apitest runs an in-process fake of the VM console backend. It speaks the same
// wire format as the real service: form login on /token returning an HS256 JWT, and
// bearer-protected VM endpoints that answer 401, 403 and 404 with {"detail": ...} bodies.
package apitest

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// TokenExpiry matches the backend's access token lifetime.
	TokenExpiry = 30 * time.Minute

	defaultSecret = "apitest-secret"

	detailInvalidLogin   = "Invalid username or password"
	detailBadCredentials = "Could not validate credentials"
	detailUserNotAllowed = "User not allowed"
	detailVMNotAllowed   = "Not authorized to access this VM"
)

// VM is the state the fake keeps per machine.
type VM struct {
	ID       string
	Name     string
	Status   string
	CPU      float64
	MemUsed  int64
	MemTotal int64
	DiskUsed int64
	DiskSize int64
	Uptime   int64
	NetIn    int64
	NetOut   int64
}

// Request is a request the fake received.
type Request struct {
	Method        string
	Path          string
	Authorization string
	Form          map[string]string
}

// Server is a running fake backend. Close it when done.
type Server struct {
	*httptest.Server

	secret        []byte
	listAsObjects bool
	failStatus    map[string]int

	mu        sync.Mutex
	passwords map[string]string
	access    map[string][]string
	vms       map[string]*VM
	requests  []Request
}

// Option configures a Server.
type Option func(*Server)

// WithUser registers a user, its password and the VMs it may manage.
func WithUser(username, password string, vmIDs ...string) Option {
	return func(s *Server) {
		s.passwords[username] = password
		s.access[username] = append([]string(nil), vmIDs...)
	}
}

// WithVM adds a machine. Missing Name and Status default to "vm-<id>" and "stopped".
func WithVM(vm VM) Option {
	return func(s *Server) {
		if vm.Name == "" {
			vm.Name = "vm-" + vm.ID
		}
		if vm.Status == "" {
			vm.Status = "stopped"
		}
		v := vm
		s.vms[vm.ID] = &v
	}
}

// WithSecret sets the HMAC key tokens are signed with.
func WithSecret(secret string) Option {
	return func(s *Server) { s.secret = []byte(secret) }
}

// WithVMObjects makes GET /vms return {vmid,name,status,cpu,memory} objects instead of ids.
func WithVMObjects() Option {
	return func(s *Server) { s.listAsObjects = true }
}

// WithStatusFailure makes GET /vms/{id}/status answer with the given status code.
func WithStatusFailure(vmID string, code int) Option {
	return func(s *Server) { s.failStatus[vmID] = code }
}

// NewServer starts the fake backend.
func NewServer(opts ...Option) *Server {
	s := &Server{
		secret:     []byte(defaultSecret),
		failStatus: map[string]int{},
		passwords:  map[string]string{},
		access:     map[string][]string{},
		vms:        map[string]*VM{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Server = httptest.NewServer(s.Handler())
	return s
}

// Handler builds the gin engine serving the backend routes.
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.record)

	r.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "API is working"})
	})
	r.POST("/token", s.login)

	authed := r.Group("/vms", s.requireToken)
	authed.GET("", s.listVMs)
	authed.GET("/:vmid/status", s.vmStatus)
	for _, action := range []string{"start", "stop", "shutdown", "reset"} {
		authed.POST("/:vmid/"+action, s.vmAction(action))
	}
	return r
}

// IssueToken signs a token for username that expires after ttl.
func (s *Server) IssueToken(username string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Requests returns a copy of every request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// LastRequest returns the most recent request, or a zero Request.
func (s *Server) LastRequest() Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return Request{}
	}
	return s.requests[len(s.requests)-1]
}

// VM returns a copy of a machine's current state.
func (s *Server) VM(id string) (VM, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	vm, ok := s.vms[id]
	if !ok {
		return VM{}, false
	}
	return *vm, true
}

func (s *Server) record(c *gin.Context) {
	req := Request{
		Method:        c.Request.Method,
		Path:          c.Request.URL.Path,
		Authorization: c.GetHeader("Authorization"),
	}
	if c.Request.Method == http.MethodPost && strings.HasPrefix(c.ContentType(), "application/x-www-form-urlencoded") {
		if err := c.Request.ParseForm(); err == nil {
			req.Form = map[string]string{}
			for k := range c.Request.PostForm {
				req.Form[k] = c.Request.PostForm.Get(k)
			}
		}
	}
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	c.Next()
}

func (s *Server) login(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")

	s.mu.Lock()
	want, ok := s.passwords[username]
	s.mu.Unlock()
	if !ok || want != password || username == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": detailInvalidLogin})
		return
	}

	token, err := s.IssueToken(username, TokenExpiry)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": token, "token_type": "bearer"})
}

func (s *Server) requireToken(c *gin.Context) {
	username, err := s.authenticate(c.GetHeader("Authorization"))
	if err != nil {
		c.Header("WWW-Authenticate", "Bearer")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": detailBadCredentials})
		return
	}
	c.Set("username", username)
	c.Next()
}

func (s *Server) authenticate(header string) (string, error) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return "", errors.New("missing bearer token")
	}
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("invalid token: %w", err)
	}
	if claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}

// allowed returns the VM ids visible to the caller, or false when the user is unknown.
func (s *Server) allowed(c *gin.Context) ([]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids, ok := s.access[c.GetString("username")]
	return ids, ok
}

func (s *Server) listVMs(c *gin.Context) {
	ids, ok := s.allowed(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"detail": detailUserNotAllowed})
		return
	}
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)

	if !s.listAsObjects {
		c.JSON(http.StatusOK, sorted)
		return
	}

	s.mu.Lock()
	out := make([]gin.H, 0, len(sorted))
	for _, id := range sorted {
		vm, ok := s.vms[id]
		if !ok {
			continue
		}
		out = append(out, gin.H{
			"vmid":   vm.ID,
			"name":   vm.Name,
			"status": vm.Status,
			"cpu":    vm.CPU,
			"memory": gin.H{"used": vm.MemUsed, "total": vm.MemTotal},
		})
	}
	s.mu.Unlock()
	c.JSON(http.StatusOK, out)
}

// lookup applies the access check then the existence check, in that order.
func (s *Server) lookup(c *gin.Context) (*VM, bool) {
	id := c.Param("vmid")
	ids, _ := s.allowed(c)
	permitted := false
	for _, allowed := range ids {
		if allowed == id {
			permitted = true
			break
		}
	}
	if !permitted {
		c.JSON(http.StatusForbidden, gin.H{"detail": detailVMNotAllowed})
		return nil, false
	}

	s.mu.Lock()
	vm, ok := s.vms[id]
	s.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": fmt.Sprintf("VM %s not found", id)})
		return nil, false
	}
	return vm, true
}

func (s *Server) vmStatus(c *gin.Context) {
	vm, ok := s.lookup(c)
	if !ok {
		return
	}
	if code, fail := s.failStatus[vm.ID]; fail {
		c.JSON(code, gin.H{"detail": "Error getting VM status"})
		return
	}

	s.mu.Lock()
	body := gin.H{
		"name":   vm.Name,
		"status": vm.Status,
		"cpu":    vm.CPU,
		"memory": gin.H{"used": vm.MemUsed, "total": vm.MemTotal},
		"disk":   gin.H{"used": vm.DiskUsed, "total": vm.DiskSize},
		"uptime": vm.Uptime,
		"netin":  vm.NetIn,
		"netout": vm.NetOut,
	}
	s.mu.Unlock()
	c.JSON(http.StatusOK, body)
}

var actionStatus = map[string]string{
	"start":    "running",
	"stop":     "stopped",
	"shutdown": "stopped",
	"reset":    "running",
}

func (s *Server) vmAction(action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		vm, ok := s.lookup(c)
		if !ok {
			return
		}
		s.mu.Lock()
		vm.Status = actionStatus[action]
		if vm.Status == "stopped" {
			vm.Uptime = 0
		}
		s.mu.Unlock()

		verb := strings.ToUpper(action[:1]) + action[1:]
		c.JSON(http.StatusOK, gin.H{"message": verb + " initiated successfully"})
	}
}
