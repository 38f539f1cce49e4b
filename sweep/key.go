package sweep

import (
	"strconv"

	"github.com/google/uuid"

	"github.com/pthm-cable/contagion/sim"
)

// RunKey derives a stable run identifier from the parameters and seed.
// Equal inputs give equal keys across processes.
func RunKey(p sim.Params, seed int64) string {
	name := "contagion:" + p.String() + ";seed=" + strconv.FormatInt(seed, 10)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}
