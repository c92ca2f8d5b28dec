package network

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tuai/tuaid/pkg/model"
)

func TestClassifyEndpointLLMAPIs(t *testing.T) {
	assert.Equal(t, model.EndpointLLMAPI, ClassifyEndpoint("api.anthropic.com", 443))
	assert.Equal(t, model.EndpointLLMAPI, ClassifyEndpoint("api.openai.com", 443))
	assert.Equal(t, model.EndpointLLMAPI, ClassifyEndpoint("generativelanguage.googleapis.com", 443))
}

func TestClassifyEndpointLocalLLM(t *testing.T) {
	assert.Equal(t, model.EndpointLocalLLM, ClassifyEndpoint("127.0.0.1", 11434))
	assert.Equal(t, model.EndpointLocalLLM, ClassifyEndpoint("myhost-ollama", 9999))
	assert.Equal(t, model.EndpointLocalLLM, ClassifyEndpoint("10.0.0.5", 1234))
}

func TestClassifyEndpointLocalhostWithoutKnownPort(t *testing.T) {
	assert.Equal(t, model.EndpointLocalhost, ClassifyEndpoint("127.0.0.1", 9), "unrecognized port on loopback stays localhost")
	assert.Equal(t, model.EndpointLocalhost, ClassifyEndpoint("::1", 22))
}

func TestClassifyEndpointCodeForgeAndRegistry(t *testing.T) {
	assert.Equal(t, model.EndpointCodeForge, ClassifyEndpoint("api.github.com", 443))
	assert.Equal(t, model.EndpointPackageRegistry, ClassifyEndpoint("registry.npmjs.org", 443))
	assert.Equal(t, model.EndpointPackageRegistry, ClassifyEndpoint("pypi.org", 443))
}

func TestClassifyEndpointTelemetryAndUnknown(t *testing.T) {
	assert.Equal(t, model.EndpointTelemetry, ClassifyEndpoint("o123.ingest.sentry.io", 443))
	assert.Equal(t, model.EndpointUnknown, ClassifyEndpoint("example.com", 443))
}
