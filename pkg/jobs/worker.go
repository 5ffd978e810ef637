package jobs

import (
	"strconv"
	"strings"

	"github.com/newtron-network/fleetscan/pkg/model"
	"github.com/newtron-network/fleetscan/pkg/util"
)

// ExpandWorkerName substitutes the {can}, {model} and {ip} placeholders of
// a pool worker template.
//
//	ExpandWorkerName("{can}.{model}.{ip}", 24, "S19-88", "10.20.3.4") == "24.s19.3x4"
func ExpandWorkerName(template string, can int, deviceModel, address string) string {
	r := strings.NewReplacer(
		"{can}", strconv.Itoa(can),
		"{model}", util.ModelPrefix(deviceModel),
		"{ip}", util.IPSuffix(address),
	)
	return r.Replace(template)
}

// poolsFor renders a template into exactly model.PoolSlots endpoints, all
// sharing one worker name. Missing URLs become empty entries.
func poolsFor(t model.PoolTemplate, worker string) []model.Pool {
	pools := make([]model.Pool, model.PoolSlots)
	for i := range pools {
		pools[i] = model.Pool{URL: t.URLs[i], Username: worker, Password: t.Password}
	}
	return pools
}
