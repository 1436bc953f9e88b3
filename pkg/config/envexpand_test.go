package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandEnv(t *testing.T) {
	tests := []struct {
		name  string
		input string
		env   map[string]string
		want  string
	}{
		{
			name:  "braced substitution",
			input: "policy_dir: ${POLICY_DIR}",
			env:   map[string]string{"POLICY_DIR": "/etc/accord/policies"},
			want:  "policy_dir: /etc/accord/policies",
		},
		{
			name:  "bare dollar substitution",
			input: "home: $HOME/accord",
			env:   map[string]string{"HOME": "/root"},
			want:  "home: /root/accord",
		},
		{
			name:  "multiple substitutions in one line",
			input: "url: ${PROTOCOL}://${HOST}:${PORT}",
			env: map[string]string{
				"PROTOCOL": "https",
				"HOST":     "accord.internal",
				"PORT":     "8443",
			},
			want: "url: https://accord.internal:8443",
		},
		{
			name:  "missing variable expands to empty string",
			input: "endpoint: ${MISSING_VAR}",
			env:   map[string]string{},
			want:  "endpoint: ",
		},
		{
			name:  "no substitution when no variables",
			input: "static: value",
			env:   map[string]string{"UNUSED": "value"},
			want:  "static: value",
		},
		{
			name:  "variables in nested YAML structure",
			input: "database:\n  host: ${DB_HOST}\n  port: ${DB_PORT}",
			env: map[string]string{
				"DB_HOST": "localhost",
				"DB_PORT": "5432",
			},
			want: "database:\n  host: localhost\n  port: 5432",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			result := ExpandEnv([]byte(tt.input))
			assert.Equal(t, tt.want, string(result))
		})
	}
}

func TestExpandEnvWithEmptyInput(t *testing.T) {
	result := ExpandEnv([]byte(""))
	assert.Equal(t, "", string(result))
}

func TestExpandEnvPreservesContentWithoutVariables(t *testing.T) {
	input := `
# comment
id: P-001
action: Deny
`
	result := ExpandEnv([]byte(input))
	assert.Equal(t, input, string(result))
}
