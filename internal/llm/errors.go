package llm

import "github.com/haasonsaas/nexus/pkg/models"

// wrapError converts a provider SDK error into the port's typed LLMError. The
// port never raises; every call shape returns a *models.Failure instead.
func wrapError(provider string, err error) *models.Failure {
	if err == nil {
		return nil
	}
	return models.NewFailure(models.ErrLLMError, "%s: %v", provider, err)
}
