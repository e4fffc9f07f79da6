package cors

import (
	"net/http"

	"github.com/rs/cors"
)

func AddCorsPolicy(handler http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedMethods:   []string{http.MethodGet, http.MethodPost},
		AllowCredentials: false,
		Debug:            false,
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept"},
	})

	return c.Handler(handler)
}
