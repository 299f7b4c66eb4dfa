package middleware

import (
	"crypto/subtle"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"
)

// SwaggerConfig represents the configuration for Swagger middleware
type SwaggerConfig struct {
	// URL points to the Swagger JSON endpoint
	URL          string
	DeepLinking  bool
	DocExpansion string
	// Username and Password enable basic auth when both are set
	Username string
	Password string
}

// DefaultSwaggerConfig returns the default Swagger configuration
func DefaultSwaggerConfig() *SwaggerConfig {
	return &SwaggerConfig{
		URL:          "/swagger/doc.json",
		DeepLinking:  true,
		DocExpansion: "list",
	}
}

// SwaggerHandler serves the Swagger UI and the generated doc.json
func SwaggerHandler(config *SwaggerConfig) http.Handler {
	if config == nil {
		config = DefaultSwaggerConfig()
	}

	handler := httpSwagger.Handler(
		httpSwagger.URL(config.URL),
		httpSwagger.DeepLinking(config.DeepLinking),
		httpSwagger.DocExpansion(config.DocExpansion),
		httpSwagger.DomID("swagger-ui"),
	)
	if config.Username == "" || config.Password == "" {
		return handler
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(user), []byte(config.Username)) != 1 ||
			subtle.ConstantTimeCompare([]byte(pass), []byte(config.Password)) != 1 {
			w.Header().Set("WWW-Authenticate", `Basic realm="Swagger Documentation"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
