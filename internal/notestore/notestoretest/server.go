// Package notestoretest provides an in-memory note store serving the REST data API
// for tests.
package notestoretest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
)

// DefaultPageSize is the number of search results returned per page.
const DefaultPageSize = 10

type Folder struct {
	ID, Title, ParentID string
}

type Note struct {
	ID, Title, ParentID, Body string
}

type Tag struct {
	ID, Title string
}

type Resource struct {
	ID, Title string
	Data      []byte
	// Size is what the store reports; it defaults to len(Data).
	Size int64
}

type cannedResponse struct {
	status int
	body   any
}

// Server is an httptest server backed by in-memory collections.
type Server struct {
	*httptest.Server

	Token    string
	PageSize int

	mu        sync.Mutex
	nextID    int
	folders   []*Folder
	notes     []*Note
	tags      []*Tag
	tagNotes  map[string][]string
	resources []*Resource
	calls     map[string]int
	canned    map[string]cannedResponse
}

// NewServer starts a server accepting token. It is closed when the test ends.
func NewServer(t testing.TB, token string) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := &Server{
		Token:    token,
		PageSize: DefaultPageSize,
		tagNotes: map[string][]string{},
		calls:    map[string]int{},
		canned:   map[string]cannedResponse{},
	}
	s.Server = httptest.NewServer(s.router())
	t.Cleanup(s.Close)
	return s
}

func (s *Server) router() *gin.Engine {
	router := gin.New()
	router.Use(s.count, s.auth, s.override)

	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "JoplinClipperServer") })
	router.GET("/search", s.search)
	router.POST("/folders", s.createFolder)
	router.POST("/notes", s.createNote)
	router.POST("/tags", s.createTag)
	router.POST("/tags/:id/notes", s.linkTag)
	router.POST("/resources", s.createResource)
	router.GET("/resources/:id", s.getResource)
	return router
}

// Respond makes every request to method and route (a gin route pattern such as
// "/tags/:id/notes") answer with status and body instead of the default handler.
func (s *Server) Respond(method, route string, status int, body any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.canned[method+" "+route] = cannedResponse{status: status, body: body}
}

// Calls returns how many requests hit method and route.
func (s *Server) Calls(method, route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method+" "+route]
}

// Writes returns the number of POST requests received.
func (s *Server) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for key, count := range s.calls {
		if strings.HasPrefix(key, http.MethodPost+" ") {
			n += count
		}
	}
	return n
}

// AddFolder seeds a folder and returns its id.
func (s *Server) AddFolder(title, parentID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := &Folder{ID: s.newID(), Title: title, ParentID: parentID}
	s.folders = append(s.folders, f)
	return f.ID
}

// AddTag seeds a tag and returns its id.
func (s *Server) AddTag(title string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &Tag{ID: s.newID(), Title: title}
	s.tags = append(s.tags, t)
	return t.ID
}

// AddResource seeds a resource and returns its id.
func (s *Server) AddResource(title string, data []byte) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := &Resource{ID: s.newID(), Title: title, Data: data, Size: int64(len(data))}
	s.resources = append(s.resources, r)
	return r.ID
}

func (s *Server) Folders() []Folder {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Folder, 0, len(s.folders))
	for _, f := range s.folders {
		out = append(out, *f)
	}
	return out
}

func (s *Server) Notes() []Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Note, 0, len(s.notes))
	for _, n := range s.notes {
		out = append(out, *n)
	}
	return out
}

func (s *Server) Tags() []Tag {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Tag, 0, len(s.tags))
	for _, t := range s.tags {
		out = append(out, *t)
	}
	return out
}

func (s *Server) Resources() []Resource {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Resource, 0, len(s.resources))
	for _, r := range s.resources {
		out = append(out, *r)
	}
	return out
}

// TagNotes returns the ids of the notes linked to tagID, in link order.
func (s *Server) TagNotes(tagID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.tagNotes[tagID]...)
}

// FolderByTitle returns the first folder with the given title.
func (s *Server) FolderByTitle(title string) (Folder, bool) {
	for _, f := range s.Folders() {
		if f.Title == title {
			return f, true
		}
	}
	return Folder{}, false
}

func (s *Server) newID() string {
	s.nextID++
	return fmt.Sprintf("%032x", s.nextID)
}

func (s *Server) count(c *gin.Context) {
	s.mu.Lock()
	s.calls[c.Request.Method+" "+c.FullPath()]++
	s.mu.Unlock()
	c.Next()
}

func (s *Server) auth(c *gin.Context) {
	if c.Query("token") != s.Token {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": `Invalid "token" parameter`})
		return
	}
	c.Next()
}

func (s *Server) override(c *gin.Context) {
	s.mu.Lock()
	canned, ok := s.canned[c.Request.Method+" "+c.FullPath()]
	s.mu.Unlock()
	if ok {
		c.AbortWithStatusJSON(canned.status, canned.body)
		return
	}
	c.Next()
}

type searchResult struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	ParentID string `json:"parent_id,omitempty"`
}

func (s *Server) search(c *gin.Context) {
	query := strings.ToLower(strings.Trim(c.Query("query"), "*"))
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page"})
		return
	}

	s.mu.Lock()
	var matches []searchResult
	add := func(id, title, parentID string) {
		if strings.Contains(strings.ToLower(title), query) {
			matches = append(matches, searchResult{ID: id, Title: title, ParentID: parentID})
		}
	}
	switch c.DefaultQuery("type", "note") {
	case "folder":
		for _, f := range s.folders {
			add(f.ID, f.Title, f.ParentID)
		}
	case "note":
		for _, n := range s.notes {
			add(n.ID, n.Title, n.ParentID)
		}
	case "tag":
		for _, t := range s.tags {
			add(t.ID, t.Title, "")
		}
	case "resource":
		for _, r := range s.resources {
			add(r.ID, r.Title, "")
		}
	default:
		s.mu.Unlock()
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown type"})
		return
	}
	pageSize := s.PageSize
	s.mu.Unlock()

	if pageSize <= 0 {
		pageSize = len(matches) + 1
	}
	start := (page - 1) * pageSize
	if start > len(matches) {
		start = len(matches)
	}
	end := start + pageSize
	if end > len(matches) {
		end = len(matches)
	}

	c.JSON(http.StatusOK, gin.H{
		"items":    matches[start:end],
		"has_more": end < len(matches),
	})
}

type itemRequest struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	ParentID string `json:"parent_id"`
	Body     string `json:"body"`
}

func bindItem(c *gin.Context) (*itemRequest, bool) {
	var req itemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	return &req, true
}

func (s *Server) folderExists(id string) bool {
	for _, f := range s.folders {
		if f.ID == id {
			return true
		}
	}
	return false
}

func (s *Server) createFolder(c *gin.Context) {
	req, ok := bindItem(c)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if req.ParentID != "" && !s.folderExists(req.ParentID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "parent folder not found"})
		return
	}
	f := &Folder{ID: s.newID(), Title: req.Title, ParentID: req.ParentID}
	s.folders = append(s.folders, f)
	c.JSON(http.StatusOK, gin.H{"id": f.ID, "title": f.Title, "parent_id": f.ParentID})
}

func (s *Server) createNote(c *gin.Context) {
	req, ok := bindItem(c)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.folderExists(req.ParentID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "parent folder not found"})
		return
	}
	n := &Note{ID: s.newID(), Title: req.Title, ParentID: req.ParentID, Body: req.Body}
	s.notes = append(s.notes, n)
	c.JSON(http.StatusOK, gin.H{"id": n.ID, "title": n.Title, "parent_id": n.ParentID})
}

func (s *Server) createTag(c *gin.Context) {
	req, ok := bindItem(c)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &Tag{ID: s.newID(), Title: req.Title}
	s.tags = append(s.tags, t)
	c.JSON(http.StatusOK, gin.H{"id": t.ID, "title": t.Title})
}

func (s *Server) linkTag(c *gin.Context) {
	req, ok := bindItem(c)
	if !ok {
		return
	}
	tagID := c.Param("id")

	s.mu.Lock()
	defer s.mu.Unlock()
	found := false
	for _, t := range s.tags {
		if t.ID == tagID {
			found = true
		}
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "tag not found"})
		return
	}
	s.tagNotes[tagID] = append(s.tagNotes[tagID], req.ID)
	c.JSON(http.StatusOK, gin.H{"id": tagID})
}

func (s *Server) createResource(c *gin.Context) {
	var props struct {
		Title string `json:"title"`
	}
	if err := json.Unmarshal([]byte(c.PostForm("props")), &props); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid props: " + err.Error()})
		return
	}
	header, err := c.FormFile("data")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing data part"})
		return
	}
	f, err := header.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	r := &Resource{ID: s.newID(), Title: props.Title, Data: data, Size: int64(len(data))}
	s.resources = append(s.resources, r)
	c.JSON(http.StatusOK, gin.H{"id": r.ID, "title": r.Title})
}

func (s *Server) getResource(c *gin.Context) {
	id := c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.resources {
		if r.ID == id {
			c.JSON(http.StatusOK, gin.H{"id": r.ID, "size": r.Size})
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "resource not found"})
}
