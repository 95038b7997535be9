package sync

import (
	domainsync "agroedge/internal/domain/sync"
)

type healthOutput struct {
	Body healthResponse
}

type healthResponse struct {
	Status  string `json:"status" example:"OK"`
	Online  bool   `json:"online" doc:"Результат последней проверки связи с облаком"`
	Syncing bool   `json:"syncing"`
	NodeID  string `json:"nodeId"`
	Version string `json:"version"`
}

type statusOutput struct {
	Body domainsync.Status
}

type configOutput struct {
	Body configResponse
}

type configResponse struct {
	Configurations []domainsync.ConfigEntry `json:"configurations"`
}
