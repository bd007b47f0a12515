package authflow

import (
	"sync"

	"github.com/dropDatabas3/authcore/internal/security/password"
)

var (
	dummyOnce sync.Once
	dummyPHC  string
)

// dummyHash entrega un PHC real contra el que verificar cuando el email no
// existe, para que el costo del login fallido no dependa de la existencia de
// la cuenta.
func dummyHash() string {
	dummyOnce.Do(func() {
		h, err := password.Hash(password.Default, "correct horse battery staple")
		if err != nil {
			// Verify contra un PHC inválido también consume un parse; alcanza
			// como fallback.
			h = "$argon2id$v=19$m=65536,t=3,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
		}
		dummyPHC = h
	})
	return dummyPHC
}
