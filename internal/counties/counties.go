// Package counties maps county names to map geocodes.
package counties

import (
	"sort"
	"strings"
)

var codes = map[string]string{
	"Carlow":                 "IRL.CW_1",
	"Dublin City":            "IRL.D_1",
	"Dún Laoghaire-Rathdown": "IRL.DL_1",
	"Fingal":                 "IRL.FG_1",
	"South Dublin":           "IRL.SD_1",
	"Kildare":                "IRL.KE_1",
	"Kilkenny":               "IRL.KK_1",
	"Laois":                  "IRL.LS_1",
	"Longford":               "IRL.LD_1",
	"Louth":                  "IRL.LH_1",
	"Meath":                  "IRL.MH_1",
	"Offaly":                 "IRL.OY_1",
	"Westmeath":              "IRL.WH_1",
	"Wexford":                "IRL.WX_1",
	"Wicklow":                "IRL.WW_1",
	"Clare":                  "IRL.CE_1",
	"Cork City":              "IRL.C_1",
	"Cork County":            "IRL.CO_1",
	"Limerick City":          "IRL.LK_1",
	"Limerick County":        "IRL.LI_1",
	"North Tipperary":        "IRL.TA_1",
	"South Tipperary":        "IRL.TA_1",
	"Waterford City":         "IRL.WD_1",
	"Waterford County":       "IRL.WA_1",
	"Galway City":            "IRL.G_1",
	"Galway County":          "IRL.GA_1",
	"Leitrim":                "IRL.LM_1",
	"Mayo":                   "IRL.MO_1",
	"Roscommon":              "IRL.RN_1",
	"Sligo":                  "IRL.SO_1",
	"Cavan":                  "IRL.CN_1",
	"Donegal":                "IRL.DL_1",
	"Monaghan":               "IRL.MN_1",
}

// Code returns the geocode for name. Matching ignores surrounding space and case.
func Code(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if code, ok := codes[name]; ok {
		return code, true
	}
	for county, code := range codes {
		if strings.EqualFold(county, name) {
			return code, true
		}
	}
	return "", false
}

// Names returns every known county, sorted.
func Names() []string {
	names := make([]string, 0, len(codes))
	for name := range codes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
