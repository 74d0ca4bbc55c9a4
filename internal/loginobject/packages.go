package loginobject

import (
	"encoding/json"
	"fmt"

	"github.com/abcore/core/internal/cryptocore"
	coreerr "github.com/abcore/core/pkg/errors"
)

// CarePackage is the publicly retrievable package (§3, §6): the client
// presets SNRP2/3/4 and, when recovery is configured, the encrypted
// recovery-questions blob ERQ (encrypted under L4).
type CarePackage struct {
	SNRP2 *cryptocore.SNRP `json:"SNRP2"`
	SNRP3 *cryptocore.SNRP `json:"SNRP3"`
	SNRP4 *cryptocore.SNRP `json:"SNRP4"`
	ERQ   json.RawMessage  `json:"ERQ,omitempty"`
}

// LoginPackage is the server-custodied package unlocked by LP1/LRA1
// (§3): the master-key wraps and, when recovery is configured, the
// recovery wrap and server-authenticator backups.
type LoginPackage struct {
	EMKLP2  json.RawMessage `json:"EMK_LP2"`
	EMKLRA3 json.RawMessage `json:"EMK_LRA3,omitempty"`
	ESyncKey json.RawMessage `json:"ESyncKey"`
	ELP1    json.RawMessage `json:"ELP1"`
	ELRA1   json.RawMessage `json:"ELRA1,omitempty"`
}

func marshalPackage(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("%w: %w", coreerr.ErrJSONError, err)
	}
	return string(data), nil
}

func unmarshalCarePackage(raw string) (*CarePackage, error) {
	var cp CarePackage
	if err := json.Unmarshal([]byte(raw), &cp); err != nil {
		return nil, fmt.Errorf("%w: parsing CarePackage: %w", coreerr.ErrJSONError, err)
	}
	return &cp, nil
}

func unmarshalLoginPackage(raw string) (*LoginPackage, error) {
	var lp LoginPackage
	if err := json.Unmarshal([]byte(raw), &lp); err != nil {
		return nil, fmt.Errorf("%w: parsing LoginPackage: %w", coreerr.ErrJSONError, err)
	}
	return &lp, nil
}
