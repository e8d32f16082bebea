package intake

import (
	"context"

	"go.uber.org/zap"
)

// fallbackProducts is offered when the backend catalogue is unavailable.
var fallbackProducts = []string{
	"Analisis de perfil",
	"Primera vez",
	"Renovación",
	"Actualización",
	"Radicación",
	"Recolección",
	"Corrección de formulario",
	"Corrección de cuenta",
	"Asesoría final",
	"Pasaporte Americano",
	"ESTA",
	"Analisis de perfil Canada",
	"Canadá",
	"Reino Unido",
	"Japón",
	"China",
	"Camboya",
	"Vietnam",
}

// OptionsSource fetches the product catalogue.
type OptionsSource interface {
	ProductOptions(ctx context.Context) ([]string, error)
}

// FallbackProducts returns the built-in product catalogue.
func FallbackProducts() []string {
	return append([]string(nil), fallbackProducts...)
}

// ProductOptions returns the backend catalogue, or the built-in one when the
// call fails or returns nothing.
func ProductOptions(ctx context.Context, src OptionsSource, logger *zap.Logger) []string {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts, err := src.ProductOptions(ctx)
	if err != nil {
		logger.Warn("product options unavailable, using fallback", zap.Error(err))
		return FallbackProducts()
	}
	if len(opts) == 0 {
		return FallbackProducts()
	}
	return opts
}
