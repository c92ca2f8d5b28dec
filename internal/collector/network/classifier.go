package network

import (
	"strings"

	"github.com/tuai/tuaid/pkg/model"
)

// llmAPIHosts are remote hostnames known to front a hosted LLM API,
// grounded in NetworkMonitorService::classify_endpoint.
var llmAPIHosts = []string{
	"api.anthropic.com",
	"api.openai.com",
	"api.cursor.sh",
	"api.groq.com",
	"api.together.xyz",
	"api.mistral.ai",
	"generativelanguage.googleapis.com",
}

var localLLMHints = []string{"ollama", "lmstudio", "localai"}

var localLLMPorts = map[uint16]struct{}{
	11434: {},
	1234:  {},
	8080:  {},
	5000:  {},
	5001:  {},
	8000:  {},
	3000:  {},
}

var codeForgeHosts = []string{"github.com", "api.github.com", "githubusercontent.com"}

var packageRegistryHosts = []string{"npmjs.org", "registry.npmjs.org", "pypi.org", "crates.io"}

var telemetryHosts = []string{"sentry.io", "statsig", "amplitude"}

// ClassifyEndpoint labels a remote peer for presentation, mirroring
// NetworkMonitorService::classify_endpoint / is_local_llm_endpoint. It never
// gates tracking — only display.
func ClassifyEndpoint(host string, port uint16) model.EndpointClass {
	h := strings.ToLower(host)

	if isLocalhost(h) {
		if _, ok := localLLMPorts[port]; ok {
			return model.EndpointLocalLLM
		}
		return model.EndpointLocalhost
	}

	for _, hint := range localLLMHints {
		if strings.Contains(h, hint) {
			return model.EndpointLocalLLM
		}
	}
	if _, ok := localLLMPorts[port]; ok {
		return model.EndpointLocalLLM
	}

	if containsAny(h, llmAPIHosts) {
		return model.EndpointLLMAPI
	}
	if containsAny(h, codeForgeHosts) {
		return model.EndpointCodeForge
	}
	if containsAny(h, packageRegistryHosts) {
		return model.EndpointPackageRegistry
	}
	if containsAny(h, telemetryHosts) {
		return model.EndpointTelemetry
	}
	return model.EndpointUnknown
}

func isLocalhost(host string) bool {
	return strings.HasPrefix(host, "127.") || host == "localhost" || host == "::1"
}

func containsAny(host string, candidates []string) bool {
	for _, c := range candidates {
		if strings.Contains(host, c) {
			return true
		}
	}
	return false
}
