package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dekarrin/plyfin"
	"github.com/dekarrin/plyfin/internal/version"
	"github.com/dekarrin/plyfin/server/svc"
)

const testGrammar = `start: item+;
item: WORD | NUM;
WORD: '[a-z]+';
NUM: '[0-9]+';
WS: '[ ]+' (%ignore);
`

func testConfig() Config {
	return Config{
		TokenSecret:      []byte("0123456789abcdef0123456789abcdef"),
		AdminPassword:    "hunter2",
		UnauthDelay:      -1,
		PasswordHashCost: bcrypt.MinCost,
	}
}

func newTestServer(t *testing.T, cfg Config) (*Server, *test.Hook) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	srv, err := New(cfg, log)
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })
	return srv, hook
}

type response struct {
	status int
	header http.Header
	body   []byte
}

func (r response) json(t *testing.T) map[string]any {
	var m map[string]any
	require.NoError(t, json.Unmarshal(r.body, &m), "body: %s", string(r.body))
	return m
}

func do(t *testing.T, h http.Handler, method, path, tok string, body any) response {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reqBody)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return response{status: resp.StatusCode, header: resp.Header, body: data}
}

func login(t *testing.T, h http.Handler) (tok string, userID string) {
	resp := do(t, h, http.MethodPost, "/api/v1/login", "", map[string]string{"username": "admin", "password": "hunter2"})
	require.Equal(t, http.StatusCreated, resp.status, string(resp.body))
	m := resp.json(t)
	return m["token"].(string), m["user_id"].(string)
}

func createGrammar(t *testing.T, h http.Handler, tok, name string) string {
	resp := do(t, h, http.MethodPost, "/api/v1/grammars", tok, map[string]any{"name": name, "source": testGrammar})
	require.Equal(t, http.StatusCreated, resp.status, string(resp.body))
	return resp.json(t)["id"].(string)
}

func Test_Server_info(t *testing.T) {
	assert := assert.New(t)
	srv, _ := newTestServer(t, testConfig())

	resp := do(t, srv.Handler(), http.MethodGet, "/api/v1/info", "", nil)
	assert.Equal(http.StatusOK, resp.status)

	m := resp.json(t)
	ver := m["version"].(map[string]any)
	assert.Equal(version.Current, ver["plyfin"])
	assert.Equal(version.ServerCurrent, ver["server"])
}

func Test_Server_login(t *testing.T) {
	testCases := []struct {
		name       string
		body       any
		expectCode int
	}{
		{name: "correct", body: map[string]string{"username": "admin", "password": "hunter2"}, expectCode: http.StatusCreated},
		{name: "wrong password", body: map[string]string{"username": "admin", "password": "nope"}, expectCode: http.StatusUnauthorized},
		{name: "unknown user", body: map[string]string{"username": "bob", "password": "hunter2"}, expectCode: http.StatusUnauthorized},
		{name: "missing password", body: map[string]string{"username": "admin"}, expectCode: http.StatusBadRequest},
		{name: "not an object", body: []int{1, 2}, expectCode: http.StatusBadRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)
			srv, _ := newTestServer(t, testConfig())

			resp := do(t, srv.Handler(), http.MethodPost, "/api/v1/login", "", tc.body)
			assert.Equal(tc.expectCode, resp.status, string(resp.body))
			if tc.expectCode == http.StatusUnauthorized {
				assert.Contains(resp.header.Get("WWW-Authenticate"), "Bearer")
			}
		})
	}
}

func Test_Server_requiresAuth(t *testing.T) {
	testCases := []struct {
		name   string
		method string
		path   string
		tok    string
	}{
		{name: "list without token", method: http.MethodGet, path: "/api/v1/grammars"},
		{name: "create without token", method: http.MethodPost, path: "/api/v1/grammars"},
		{name: "refresh without token", method: http.MethodPost, path: "/api/v1/tokens"},
		{name: "garbage token", method: http.MethodGet, path: "/api/v1/grammars", tok: "abc.def.ghi"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)
			srv, _ := newTestServer(t, testConfig())

			resp := do(t, srv.Handler(), tc.method, tc.path, tc.tok, nil)
			assert.Equal(http.StatusUnauthorized, resp.status)
		})
	}
}

func Test_Server_grammarLifecycle(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	h := srv.Handler()
	tok, adminID := login(t, h)
	id := createGrammar(t, h, tok, "words")

	t.Run("get", func(t *testing.T) {
		assert := assert.New(t)

		resp := do(t, h, http.MethodGet, "/api/v1/grammars/"+id, tok, nil)
		assert.Equal(http.StatusOK, resp.status)
		m := resp.json(t)
		assert.Equal("words", m["name"])
		assert.Equal(testGrammar, m["source"])
		assert.Equal(adminID, m["creator"])
		opts := m["options"].(map[string]any)
		assert.Equal(true, opts["auto_filter_tokens"])
	})

	t.Run("list", func(t *testing.T) {
		assert := assert.New(t)

		resp := do(t, h, http.MethodGet, "/api/v1/grammars", tok, nil)
		assert.Equal(http.StatusOK, resp.status)

		var all []map[string]any
		require.NoError(t, json.Unmarshal(resp.body, &all))
		if assert.Len(all, 1) {
			assert.Equal(id, all[0]["id"])
			assert.NotContains(all[0], "source")
		}
	})

	t.Run("duplicate name", func(t *testing.T) {
		assert := assert.New(t)

		resp := do(t, h, http.MethodPost, "/api/v1/grammars", tok, map[string]any{"name": "words", "source": testGrammar})
		assert.Equal(http.StatusConflict, resp.status)
	})

	t.Run("parse", func(t *testing.T) {
		assert := assert.New(t)

		resp := do(t, h, http.MethodPost, "/api/v1/grammars/"+id+"/parse", tok, map[string]string{"text": "ab 12"})
		assert.Equal(http.StatusOK, resp.status, string(resp.body))
		m := resp.json(t)
		assert.Equal(`start(item("ab"), item("12"))`, m["compact"])

		tree := m["tree"].(map[string]any)
		assert.Equal("start", tree["head"])
		assert.Len(tree["tail"], 2)
	})

	t.Run("parse syntax error", func(t *testing.T) {
		assert := assert.New(t)

		resp := do(t, h, http.MethodPost, "/api/v1/grammars/"+id+"/parse", tok, map[string]string{"text": ""})
		assert.Equal(http.StatusUnprocessableEntity, resp.status)
		m := resp.json(t)
		details := m["details"].([]any)
		if assert.Len(details, 1) {
			first := details[0].(map[string]any)
			assert.Equal(true, first["at_end"])
			assert.NotEmpty(first["expected"])
		}
	})

	t.Run("parse tokenize error", func(t *testing.T) {
		assert := assert.New(t)

		resp := do(t, h, http.MethodPost, "/api/v1/grammars/"+id+"/parse", tok, map[string]string{"text": "ab ?"})
		assert.Equal(http.StatusUnprocessableEntity, resp.status)
		details := resp.json(t)["details"].(map[string]any)
		assert.Equal("?", details["char"])
		assert.EqualValues(1, details["line"])
	})

	t.Run("lex", func(t *testing.T) {
		assert := assert.New(t)

		resp := do(t, h, http.MethodPost, "/api/v1/grammars/"+id+"/lex", tok, map[string]string{"text": "ab 12"})
		assert.Equal(http.StatusOK, resp.status)

		var toks []map[string]any
		require.NoError(t, json.Unmarshal(resp.body, &toks))
		if assert.Len(toks, 2) {
			assert.Equal("WORD", toks[0]["type"])
			assert.Equal("NUM", toks[1]["type"])
			assert.Equal("12", toks[1]["value"])
		}
	})

	t.Run("delete", func(t *testing.T) {
		assert := assert.New(t)

		resp := do(t, h, http.MethodDelete, "/api/v1/grammars/"+id, tok, nil)
		assert.Equal(http.StatusNoContent, resp.status)

		resp = do(t, h, http.MethodGet, "/api/v1/grammars/"+id, tok, nil)
		assert.Equal(http.StatusNotFound, resp.status)

		resp = do(t, h, http.MethodPost, "/api/v1/grammars/"+id+"/parse", tok, map[string]string{"text": "ab"})
		assert.Equal(http.StatusNotFound, resp.status)
	})
}

func Test_Server_createGrammar_errors(t *testing.T) {
	testCases := []struct {
		name       string
		body       any
		expectCode int
		expectMsg  string
	}{
		{
			name:       "undefined symbol",
			body:       map[string]any{"name": "bad", "source": "start: B;"},
			expectCode: http.StatusBadRequest,
			expectMsg:  "grammar error",
		},
		{
			name:       "blank name",
			body:       map[string]any{"name": "", "source": testGrammar},
			expectCode: http.StatusBadRequest,
			expectMsg:  "name cannot be blank",
		},
		{
			name:       "blank source",
			body:       map[string]any{"name": "x", "source": ""},
			expectCode: http.StatusBadRequest,
			expectMsg:  "source cannot be blank",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)
			srv, _ := newTestServer(t, testConfig())
			tok, _ := login(t, srv.Handler())

			resp := do(t, srv.Handler(), http.MethodPost, "/api/v1/grammars", tok, tc.body)
			assert.Equal(tc.expectCode, resp.status)
			m := resp.json(t)
			assert.Contains(m["error"], tc.expectMsg)
		})
	}
}

func Test_Server_createGrammar_options(t *testing.T) {
	assert := assert.New(t)
	srv, _ := newTestServer(t, testConfig())
	h := srv.Handler()
	tok, _ := login(t, h)

	src := `start: '\(' A '\)'; A: 'a';`
	resp := do(t, h, http.MethodPost, "/api/v1/grammars", tok, map[string]any{
		"name":    "parens",
		"source":  src,
		"options": map[string]bool{"auto_filter_tokens": false},
	})
	require.Equal(t, http.StatusCreated, resp.status, string(resp.body))
	id := resp.json(t)["id"].(string)

	resp = do(t, h, http.MethodPost, "/api/v1/grammars/"+id+"/parse", tok, map[string]string{"text": "(a)"})
	assert.Equal(http.StatusOK, resp.status)
	assert.Equal(`start("(", "a", ")")`, resp.json(t)["compact"])
}

func Test_Server_logout(t *testing.T) {
	assert := assert.New(t)
	srv, _ := newTestServer(t, testConfig())
	h := srv.Handler()
	tok, userID := login(t, h)

	resp := do(t, h, http.MethodPost, "/api/v1/tokens", tok, nil)
	assert.Equal(http.StatusCreated, resp.status)

	resp = do(t, h, http.MethodDelete, "/api/v1/login/"+userID, tok, nil)
	assert.Equal(http.StatusNoContent, resp.status)

	resp = do(t, h, http.MethodGet, "/api/v1/grammars", tok, nil)
	assert.Equal(http.StatusUnauthorized, resp.status)
}

func Test_Server_routing(t *testing.T) {
	testCases := []struct {
		name        string
		method      string
		path        string
		contentType string
		expectCode  int
	}{
		{name: "unknown path", method: http.MethodGet, path: "/api/v1/nothing", expectCode: http.StatusNotFound},
		{name: "bad method", method: http.MethodPut, path: "/api/v1/info", expectCode: http.StatusMethodNotAllowed},
		{name: "trailing slash", method: http.MethodGet, path: "/api/v1/info/", expectCode: http.StatusPermanentRedirect},
		{name: "non-uuid id", method: http.MethodGet, path: "/api/v1/grammars/12", expectCode: http.StatusNotFound},
		{name: "wrong content type", method: http.MethodPost, path: "/api/v1/grammars", contentType: "text/plain", expectCode: http.StatusBadRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)
			srv, _ := newTestServer(t, testConfig())
			tok, _ := login(t, srv.Handler())

			req := httptest.NewRequest(tc.method, tc.path, bytes.NewReader([]byte(`{}`)))
			req.Header.Set("Authorization", "Bearer "+tok)
			if tc.contentType != "" {
				req.Header.Set("Content-Type", tc.contentType)
			}
			w := httptest.NewRecorder()
			srv.Handler().ServeHTTP(w, req)

			assert.Equal(tc.expectCode, w.Code)
		})
	}
}

func Test_Server_logsResponses(t *testing.T) {
	assert := assert.New(t)
	srv, hook := newTestServer(t, testConfig())

	do(t, srv.Handler(), http.MethodGet, "/api/v1/info", "", nil)

	entry := hook.LastEntry()
	if assert.NotNil(entry) {
		assert.Equal(logrus.InfoLevel, entry.Level)
		assert.Equal(http.StatusOK, entry.Data["status"])
		assert.Equal("/api/v1/info", entry.Data["path"])
	}
}

func Test_Server_sqlite(t *testing.T) {
	assert := assert.New(t)
	dir := t.TempDir()

	cfg := testConfig()
	st, err := ParseStorage("sqlite:" + filepath.Join(dir, "data"))
	require.NoError(t, err)
	cfg.Storage = st

	srv, err := New(cfg, nil)
	require.NoError(t, err)
	tok, _ := login(t, srv.Handler())
	id := createGrammar(t, srv.Handler(), tok, "words")
	require.NoError(t, srv.Close())

	// the grammar and admin user survive a restart
	srv, err = New(cfg, nil)
	require.NoError(t, err)
	defer srv.Close()

	tok, _ = login(t, srv.Handler())
	resp := do(t, srv.Handler(), http.MethodPost, "/api/v1/grammars/"+id+"/parse", tok, map[string]string{"text": "xy"})
	assert.Equal(http.StatusOK, resp.status, string(resp.body))
	assert.Equal(`start(item("xy"))`, resp.json(t)["compact"])

	// compiled grammars went to the default cache file
	_, err = os.Stat(filepath.Join(dir, "data", CacheFilename))
	assert.NoError(err)
}

func Test_Server_limits(t *testing.T) {
	cfg := testConfig()
	cfg.Grammars.MaxSourceBytes = len(testGrammar)
	cfg.Grammars.MaxInputBytes = 5

	testCases := []struct {
		name       string
		path       string
		body       map[string]any
		expectCode int
	}{
		{name: "source at limit", path: "/grammars", body: map[string]any{"name": "b", "source": testGrammar}, expectCode: http.StatusCreated},
		{name: "source over limit", path: "/grammars", body: map[string]any{"name": "c", "source": testGrammar + " "}, expectCode: http.StatusRequestEntityTooLarge},
		{name: "parse at limit", path: "/parse", body: map[string]any{"text": "ab 12"}, expectCode: http.StatusOK},
		{name: "parse over limit", path: "/parse", body: map[string]any{"text": "ab 123"}, expectCode: http.StatusRequestEntityTooLarge},
		{name: "lex over limit", path: "/lex", body: map[string]any{"text": "ab 123"}, expectCode: http.StatusRequestEntityTooLarge},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)
			srv, _ := newTestServer(t, cfg)
			h := srv.Handler()
			tok, _ := login(t, h)
			id := createGrammar(t, h, tok, "a")

			path := "/api/v1/grammars"
			if tc.path != "/grammars" {
				path += "/" + id + tc.path
			}

			resp := do(t, h, http.MethodPost, path, tok, tc.body)
			assert.Equal(tc.expectCode, resp.status, string(resp.body))
			if tc.expectCode == http.StatusRequestEntityTooLarge {
				assert.Contains(resp.json(t)["error"], "over the limit")
			}
		})
	}
}

func Test_Server_defaultGrammarOptions(t *testing.T) {
	assert := assert.New(t)
	cfg := testConfig()
	cfg.Grammars.Defaults = &plyfin.Options{AutoFilterTokens: false, KeepEmptyTrees: true}
	srv, _ := newTestServer(t, cfg)
	h := srv.Handler()
	tok, _ := login(t, h)

	resp := do(t, h, http.MethodPost, "/api/v1/grammars", tok, map[string]any{"name": "parens", "source": `start: '\(' A '\)'; A: 'a';`})
	require.Equal(t, http.StatusCreated, resp.status, string(resp.body))
	m := resp.json(t)
	assert.Equal(false, m["options"].(map[string]any)["auto_filter_tokens"])

	resp = do(t, h, http.MethodPost, "/api/v1/grammars/"+m["id"].(string)+"/parse", tok, map[string]string{"text": "(a)"})
	assert.Equal(`start("(", "a", ")")`, resp.json(t)["compact"])
}

func Test_Server_generatedAdminPassword(t *testing.T) {
	assert := assert.New(t)
	cfg := testConfig()
	cfg.AdminPassword = ""
	srv, hook := newTestServer(t, cfg)

	var password string
	for _, e := range hook.AllEntries() {
		if p, ok := e.Data["password"].(string); ok {
			assert.Equal(logrus.WarnLevel, e.Level)
			password = p
		}
	}
	require.NotEmpty(t, password)

	resp := do(t, srv.Handler(), http.MethodPost, "/api/v1/login", "", map[string]string{"username": "admin", "password": password})
	assert.Equal(http.StatusCreated, resp.status)
	assert.Equal("admin", resp.json(t)["role"])
}

func Test_Server_preload(t *testing.T) {
	assert := assert.New(t)
	cfg := testConfig()
	st, err := ParseStorage("sqlite:" + t.TempDir())
	require.NoError(t, err)
	cfg.Storage = st

	srv, err := New(cfg, nil)
	require.NoError(t, err)
	tok, _ := login(t, srv.Handler())
	createGrammar(t, srv.Handler(), tok, "one")
	createGrammar(t, srv.Handler(), tok, "two")
	require.NoError(t, srv.Close())

	cfg.Grammars.Preload = true
	_, hook := newTestServer(t, cfg)

	var preloaded any
	for _, e := range hook.AllEntries() {
		if e.Message == "preloaded grammars" {
			preloaded = e.Data["grammars"]
		}
	}
	assert.Equal(2, preloaded)
}

func Test_Config(t *testing.T) {
	dir := t.TempDir()
	sqliteDir := Storage{Engine: EngineSQLite, Dir: dir}

	testCases := []struct {
		name      string
		cfg       Config
		expectErr bool
	}{
		{name: "defaults", cfg: Config{}.FillDefaults()},
		{name: "short secret", cfg: Config{TokenSecret: []byte("short")}.FillDefaults(), expectErr: true},
		{name: "long secret", cfg: Config{TokenSecret: bytes.Repeat([]byte("a"), 65)}.FillDefaults(), expectErr: true},
		{name: "sqlite without dir", cfg: Config{Storage: Storage{Engine: EngineSQLite}}.FillDefaults(), expectErr: true},
		{name: "sqlite dir is a file", cfg: Config{Storage: Storage{Engine: EngineSQLite, Dir: writeFile(t, dir, "f")}}.FillDefaults(), expectErr: true},
		{name: "unknown engine", cfg: Config{Storage: Storage{Engine: "postgres"}}.FillDefaults(), expectErr: true},
		{name: "cache is a directory", cfg: Config{CachePath: dir}.FillDefaults(), expectErr: true},
		{name: "cache is the data file", cfg: Config{Storage: sqliteDir, CachePath: filepath.Join(dir, "data.db")}.FillDefaults(), expectErr: true},
		{name: "cost too low", cfg: Config{PasswordHashCost: bcrypt.MinCost - 1}.FillDefaults(), expectErr: true},
		{name: "cost too high", cfg: Config{PasswordHashCost: bcrypt.MaxCost + 1}.FillDefaults(), expectErr: true},
		{name: "no source limit", cfg: Config{Grammars: Grammars{MaxSourceBytes: -1}}.FillDefaults()},
		{name: "source limit over body size", cfg: Config{Grammars: Grammars{MaxSourceBytes: 5 << 20}}.FillDefaults(), expectErr: true},
		{name: "input limit over body size", cfg: Config{Grammars: Grammars{MaxInputBytes: 5 << 20}}.FillDefaults(), expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func Test_Config_FillDefaults(t *testing.T) {
	testCases := []struct {
		name        string
		cfg         Config
		expectCache string
	}{
		{name: "inmem caches in memory", cfg: Config{}},
		{name: "sqlite caches in data dir", cfg: Config{Storage: Storage{Engine: EngineSQLite, Dir: "/data"}}, expectCache: filepath.Join("/data", CacheFilename)},
		{name: "explicit cache kept", cfg: Config{Storage: Storage{Engine: EngineSQLite, Dir: "/data"}, CachePath: "/c.db"}, expectCache: "/c.db"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			actual := tc.cfg.FillDefaults()

			assert.Equal(tc.expectCache, actual.CachePath)
			assert.Equal(DefaultUnauthDelay, actual.UnauthDelay)
			assert.Equal(svc.DefaultHashCost, actual.PasswordHashCost)
			assert.Equal(DefaultMaxSourceBytes, actual.Grammars.MaxSourceBytes)
			assert.Equal(DefaultMaxInputBytes, actual.Grammars.MaxInputBytes)
			if assert.NotNil(actual.Grammars.Defaults) {
				assert.Equal(plyfin.DefaultOptions(), *actual.Grammars.Defaults)
			}
		})
	}
}

func Test_ParseStorage(t *testing.T) {
	testCases := []struct {
		name      string
		input     string
		expect    Storage
		expectErr bool
	}{
		{name: "inmem", input: "inmem", expect: Storage{Engine: EngineInMemory}},
		{name: "sqlite", input: "sqlite:/data", expect: Storage{Engine: EngineSQLite, Dir: "/data"}},
		{name: "case and space", input: " SQLite : /data ", expect: Storage{Engine: EngineSQLite, Dir: "/data"}},
		{name: "sqlite no dir", input: "sqlite", expectErr: true},
		{name: "inmem with params", input: "inmem:x", expectErr: true},
		{name: "unknown", input: "postgres:x", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			actual, err := ParseStorage(tc.input)
			if tc.expectErr {
				assert.Error(err)
				return
			}
			assert.NoError(err)
			assert.Equal(tc.expect, actual)
		})
	}
}

func Test_LoadFile(t *testing.T) {
	testCases := []struct {
		name      string
		content   string
		expect    func(assert *assert.Assertions, cfg Config)
		expectErr bool
	}{
		{
			name:    "empty",
			content: "",
			expect: func(assert *assert.Assertions, cfg Config) {
				assert.Equal(Config{Grammars: Grammars{Defaults: ptrTo(plyfin.DefaultOptions())}}, cfg)
			},
		},
		{
			name: "full",
			content: `secret = "0123456789abcdef0123456789abcdef"
storage = "sqlite:/var/lib/plyfin"
unauth_delay = "250ms"
hash_cost = 10

[admin]
username = "root"
password = "pw"

[grammars]
auto_filter_tokens = false
max_input_bytes = 100
preload = true
`,
			expect: func(assert *assert.Assertions, cfg Config) {
				assert.Equal("0123456789abcdef0123456789abcdef", string(cfg.TokenSecret))
				assert.Equal(Storage{Engine: EngineSQLite, Dir: "/var/lib/plyfin"}, cfg.Storage)
				assert.Equal(250*time.Millisecond, cfg.UnauthDelay)
				assert.Equal(10, cfg.PasswordHashCost)
				assert.Equal("root", cfg.AdminUsername)
				assert.Equal("pw", cfg.AdminPassword)
				assert.Equal(plyfin.Options{AutoFilterTokens: false, KeepEmptyTrees: true}, *cfg.Grammars.Defaults)
				assert.Equal(100, cfg.Grammars.MaxInputBytes)
				assert.True(cfg.Grammars.Preload)
			},
		},
		{name: "unknown key", content: "colour = \"red\"\n", expectErr: true},
		{name: "bad storage", content: "storage = \"mongo\"\n", expectErr: true},
		{name: "bad delay", content: "unauth_delay = \"soon\"\n", expectErr: true},
		{name: "not toml", content: "[[[", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)
			path := writeFile(t, t.TempDir(), "plyfin.toml", tc.content)

			var cfg Config
			f, err := LoadFile(path)
			if err == nil {
				cfg, err = f.Config()
			}
			if tc.expectErr {
				assert.Error(err)
				return
			}
			if !assert.NoError(err) {
				return
			}
			tc.expect(assert, cfg)
		})
	}
}

func writeFile(t *testing.T, dir, name string, content ...string) string {
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(content, "")), 0644))
	return path
}

func ptrTo[E any](v E) *E {
	return &v
}
