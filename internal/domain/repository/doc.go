// Package repository define las interfaces de persistencia del core.
//
// Cada tabla de secretos tiene exactamente un componente dueño:
//   - RefreshTokenRepository  → internal/refresh
//   - APIKeyRepository        → internal/apikey
//   - MFARepository           → internal/mfa
//   - OAuthRepository         → internal/social
//
// Ningún otro componente escribe esas filas directamente. Las implementaciones
// viven en internal/store/{pg,memory}.
package repository
