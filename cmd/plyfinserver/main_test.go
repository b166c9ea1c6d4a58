package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dekarrin/plyfin/server"
)

func Test_tokenSecret(t *testing.T) {
	testCases := []struct {
		name      string
		input     string
		expectLen int
		expectNil bool
		expectErr bool
	}{
		{name: "empty", input: "", expectNil: true},
		{name: "short is repeated", input: "abcde", expectLen: 40},
		{name: "exact", input: strings.Repeat("a", 32), expectLen: 32},
		{name: "max", input: strings.Repeat("a", 64), expectLen: 64},
		{name: "too long", input: strings.Repeat("a", 65), expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			actual, err := tokenSecret(tc.input)
			if tc.expectErr {
				assert.Error(err)
				return
			}
			assert.NoError(err)
			if tc.expectNil {
				assert.Nil(actual)
				return
			}
			assert.Len(actual, tc.expectLen)
			assert.True(strings.HasPrefix(string(actual), tc.input))
		})
	}
}

func Test_buildConfig(t *testing.T) {
	fromFile := server.File{
		Listen:  ":7000",
		Secret:  "file-secret",
		Storage: "sqlite:/file",
	}

	testCases := []struct {
		name          string
		file          server.File
		env           map[string]string
		expectListen  string
		expectStorage server.Storage
		expectSecret  string
		expectAdminPW string
		expectErr     bool
	}{
		{
			name: "nothing set",
		},
		{
			name:          "file only",
			file:          fromFile,
			expectListen:  ":7000",
			expectStorage: server.Storage{Engine: server.EngineSQLite, Dir: "/file"},
			expectSecret:  strings.Repeat("file-secret", 4),
		},
		{
			name: "env over file",
			file: fromFile,
			env: map[string]string{
				EnvListen: "127.0.0.1:9000",
				EnvDB:     "inmem",
				EnvSecret: strings.Repeat("e", 32),
				EnvAdmin:  "pw",
			},
			expectListen:  "127.0.0.1:9000",
			expectStorage: server.Storage{Engine: server.EngineInMemory},
			expectSecret:  strings.Repeat("e", 32),
			expectAdminPW: "pw",
		},
		{
			name:      "listen without port",
			env:       map[string]string{EnvListen: "localhost"},
			expectErr: true,
		},
		{
			name:      "bad storage",
			env:       map[string]string{EnvDB: "sqlite"},
			expectErr: true,
		},
		{
			name:      "secret too long",
			file:      server.File{Secret: strings.Repeat("s", 65)},
			expectErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)
			for _, env := range []string{EnvListen, EnvDB, EnvSecret, EnvAdmin} {
				t.Setenv(env, tc.env[env])
			}

			cfg, listen, err := buildConfig(tc.file)
			if tc.expectErr {
				assert.Error(err)
				return
			}
			if !assert.NoError(err) {
				return
			}
			assert.Equal(tc.expectListen, listen)
			assert.Equal(tc.expectStorage, cfg.Storage)
			assert.Equal(tc.expectSecret, string(cfg.TokenSecret))
			assert.Equal(tc.expectAdminPW, cfg.AdminPassword)
		})
	}
}
