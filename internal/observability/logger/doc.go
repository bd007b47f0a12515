// Package logger expone un zap.Logger singleton con scoping por contexto.
//
// main lo inicializa una vez:
//
//	logger.Init(logger.Config{Env: cfg.App.Env, Level: os.Getenv("LOG_LEVEL")})
//	defer logger.Sync()
//
// Los middlewares HTTP inyectan un logger con campos del request
// (request_id, método, ruta) vía ToContext; el resto del código lo recupera
// con From(ctx) sin saber si hubo middleware o no:
//
//	logger.From(ctx).Info("login ok", logger.PrincipalID(id))
//
// En dev emite consola con colores; en prod JSON a stderr con stacktraces
// a partir de Error. Nunca loguear secretos: los field helpers de fields.go
// cubren los identificadores seguros.
package logger
