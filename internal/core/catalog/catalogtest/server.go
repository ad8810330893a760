// Package catalogtest provides an in-process fake of the remote content API.
package catalogtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	"github.com/xlo-tools/xlo/internal/core/model"
)

const (
	User     = "jdoe"
	Password = "s3cret"
	Token    = "tok-123"
)

// Server serves a configurable catalog. Fields may be changed between runs
// but not while requests are in flight.
type Server struct {
	*httptest.Server

	Langs   []model.Lang
	Objects []model.LearningObject

	mu         sync.Mutex
	contents   map[string][]byte
	files      map[string][]model.FileInfo
	blobs      map[string][]byte
	containers []string
	failing    map[string]int
	downloads  map[string]int
}

// New starts a fake catalog that is closed when the test ends.
func New(t *testing.T) *Server {
	t.Helper()
	s := &Server{
		contents:  make(map[string][]byte),
		files:     make(map[string][]model.FileInfo),
		blobs:     make(map[string][]byte),
		failing:   make(map[string]int),
		downloads: make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/users/login", s.login)
	mux.HandleFunc("GET /api/Langs", s.authed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, s.Langs)
	}))
	mux.HandleFunc("GET /api/LearningObjects/{$}", s.authed(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("access_token") != Token {
			http.Error(w, "bad token", http.StatusUnauthorized)
			return
		}
		writeJSON(w, s.Objects)
	}))
	mux.HandleFunc("GET /api/LearningObjects/{id}/files", s.authed(func(w http.ResponseWriter, r *http.Request) {
		s.serveFileList(w, r.PathValue("id"))
	}))
	mux.HandleFunc("GET /api/LearningObjectFC", s.authed(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		out := make([]map[string]string, 0, len(s.containers))
		for _, c := range s.containers {
			out = append(out, map[string]string{"name": c})
		}
		writeJSON(w, out)
	}))
	mux.HandleFunc("GET /api/LearningObjectFC/{container}/files", s.authed(func(w http.ResponseWriter, r *http.Request) {
		s.serveFileList(w, r.PathValue("container"))
	}))
	mux.HandleFunc("GET /api/LearningObjectFC/{container}/download/{name...}", s.authed(func(w http.ResponseWriter, r *http.Request) {
		container, name := r.PathValue("container"), r.PathValue("name")
		if name == "content.json" {
			s.mu.Lock()
			body, ok := s.contents[container]
			s.mu.Unlock()
			if !ok {
				http.NotFound(w, r)
				return
			}
			_, _ = w.Write(body)
			return
		}
		s.serveBlob(w, r, container+"/"+name)
	}))
	mux.HandleFunc("GET /any/path/{name}", s.authed(func(w http.ResponseWriter, r *http.Request) {
		s.serveBlob(w, r, "shared/"+r.PathValue("name"))
	}))

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// AddObject registers an object, its content.json and its media files.
func (s *Server) AddObject(lo model.LearningObject, content string, media map[string][]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Objects = append(s.Objects, lo)
	s.contents[lo.ContainerID] = []byte(content)
	list := []model.FileInfo{}
	for _, name := range sortedKeys(media) {
		list = append(list, model.FileInfo{Container: lo.ContainerID, Name: name, Size: int64(len(media[name]))})
		s.blobs[lo.ContainerID+"/"+name] = media[name]
	}
	s.files[lo.ContainerID] = list
}

// AddListing appends names to an object's file list without serving them.
func (s *Server) AddListing(containerID string, names ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range names {
		s.files[containerID] = append(s.files[containerID], model.FileInfo{Container: containerID, Name: n})
	}
}

// AddContainer registers a file container (a UI runtime version or public).
func (s *Server) AddContainer(name string, files map[string][]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.containers = append(s.containers, name)
	list := []model.FileInfo{}
	for _, fn := range sortedKeys(files) {
		list = append(list, model.FileInfo{Container: name, Name: fn, Size: int64(len(files[fn]))})
		s.blobs[name+"/"+fn] = files[fn]
	}
	s.files[name] = list
}

// AddSharedAsset serves name from the shared asset path.
func (s *Server) AddSharedAsset(name string, body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs["shared/"+name] = body
}

// Fail makes the next n requests for key ("container/name", or an object id
// for its content and file list) answer 500.
func (s *Server) Fail(key string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing[key] = n
}

// Downloads returns the number of successful asset downloads served.
func (s *Server) Downloads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.downloads {
		n += c
	}
	return n
}

// DownloadsOf returns how often key ("container/name") was downloaded.
func (s *Server) DownloadsOf(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.downloads[key]
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad body", http.StatusBadRequest)
		return
	}
	user := body["username"]
	if user == "" {
		user = body["email"]
	}
	if (user != User && user != User+"@example.edu") || body["password"] != Password {
		http.Error(w, `{"error":"login failed"}`, http.StatusUnauthorized)
		return
	}
	writeJSON(w, map[string]string{"id": Token})
}

func (s *Server) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("authorization") != Token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) serveFileList(w http.ResponseWriter, key string) {
	if s.consumeFailure(key) {
		http.Error(w, "boom", http.StatusInternalServerError)
		return
	}
	s.mu.Lock()
	list, ok := s.files[key]
	s.mu.Unlock()
	if !ok {
		writeJSON(w, "container not found")
		return
	}
	writeJSON(w, list)
}

func (s *Server) serveBlob(w http.ResponseWriter, r *http.Request, key string) {
	if s.consumeFailure(key) {
		http.Error(w, "boom", http.StatusInternalServerError)
		return
	}
	s.mu.Lock()
	body, ok := s.blobs[key]
	if ok {
		s.downloads[key]++
	}
	s.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	_, _ = w.Write(body)
}

func (s *Server) consumeFailure(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing[key] > 0 {
		s.failing[key]--
		return true
	}
	return false
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func sortedKeys(m map[string][]byte) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
