package probes

import (
	"net"
	"sync"
	"time"

	"github.com/oschwald/geoip2-golang"

	"github.com/user/netmon/internal/model"
	"github.com/user/netmon/internal/util"
)

type geoRecord struct {
	country string
	asn     uint
	asnOrg  string
	expires time.Time
}

// GeoIPLookup resolves country and ASN data from local MaxMind databases and
// caches the answers per address.
type GeoIPLookup struct {
	countryDB string
	asnDB     string

	mu    sync.RWMutex
	cache map[string]geoRecord
	ttl   time.Duration
}

// NewGeoIPLookup returns nil when neither database path is set.
func NewGeoIPLookup(countryDB, asnDB string) *GeoIPLookup {
	if countryDB == "" && asnDB == "" {
		return nil
	}
	return &GeoIPLookup{
		countryDB: countryDB,
		asnDB:     asnDB,
		cache:     make(map[string]geoRecord),
		ttl:       24 * time.Hour,
	}
}

// Enrich fills the Country and ASN fields of id from its public address.
func (g *GeoIPLookup) Enrich(id *model.Identity) {
	rec, ok := g.lookup(id.PublicIP)
	if !ok {
		return
	}
	id.Country = rec.country
	id.ASN = rec.asn
	id.ASNOrg = rec.asnOrg
}

func (g *GeoIPLookup) lookup(ipStr string) (geoRecord, bool) {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return geoRecord{}, false
	}

	g.mu.RLock()
	cached, ok := g.cache[ipStr]
	g.mu.RUnlock()
	if ok && time.Now().Before(cached.expires) {
		return cached, true
	}

	var rec geoRecord
	if g.countryDB != "" {
		if db, err := geoip2.Open(g.countryDB); err == nil {
			if c, err := db.Country(ip); err == nil && c != nil {
				rec.country = c.Country.IsoCode
			}
			db.Close()
		} else {
			util.Debug("geoip country db: %v", err)
		}
	}
	if g.asnDB != "" {
		if db, err := geoip2.Open(g.asnDB); err == nil {
			if a, err := db.ASN(ip); err == nil && a != nil {
				rec.asn = a.AutonomousSystemNumber
				rec.asnOrg = a.AutonomousSystemOrganization
			}
			db.Close()
		} else {
			util.Debug("geoip asn db: %v", err)
		}
	}
	if rec.country == "" && rec.asn == 0 {
		return geoRecord{}, false
	}

	rec.expires = time.Now().Add(g.ttl)
	g.mu.Lock()
	g.cache[ipStr] = rec
	g.mu.Unlock()
	return rec, true
}
