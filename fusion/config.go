package fusion

import (
	"encoding/xml"
	"io"
	"os"
	"strconv"
)

// TelemetrySenderConfig is one telemetry destination from settings.xml.
type TelemetrySenderConfig struct {
	Addr string
	Port int
	Type string
	Mask uint32
}

func readXML(path string) (*xml.Decoder, *os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	dec := xml.NewDecoder(f)
	return dec, f, nil
}

func attrValue(start xml.StartElement, name string) (string, bool) {
	for _, a := range start.Attr {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

func parseFloatAttr(start xml.StartElement, name string) (float64, bool) {
	if v, ok := attrValue(start, name); ok {
		val, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return val, true
		}
	}
	return 0, false
}

func parseIntAttr(start xml.StartElement, name string) (int, bool) {
	if v, ok := attrValue(start, name); ok {
		val, err := strconv.Atoi(v)
		if err == nil {
			return val, true
		}
	}
	return 0, false
}

func parseBoolAttr(start xml.StartElement, name string) (bool, bool) {
	if v, ok := attrValue(start, name); ok {
		val, err := strconv.ParseBool(v)
		if err == nil {
			return val, true
		}
	}
	return false, false
}

// ParseConfig reads filter tuning from settings.xml. Missing file or
// missing attributes leave the defaults in place.
func ParseConfig(path string) Config {
	cfg := DefaultConfig()
	dec, f, err := readXML(path)
	if err != nil {
		return cfg
	}
	defer f.Close()
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "filter" {
			continue
		}
		if v, ok := parseFloatAttr(start, "refresh"); ok && v > 0 {
			cfg.RefreshRate = v
		}
		if v, ok := parseFloatAttr(start, "tempoffset"); ok {
			cfg.TempOffsetC = v
		}
		if v, ok := parseBoolAttr(start, "groundmode"); ok {
			cfg.GroundMode = v
		}
		if v, ok := parseBoolAttr(start, "stepsmoothing"); ok {
			cfg.StepSmoothing = v
		}
	}
	return cfg
}

// ParsePolar reads a custom polar table from settings.xml:
//
//	<polar name="Aura 5" s="2.0" m="77.5">
//	  <point aoa="90" cl="0.109" cd="1.087"/>
//	  ...
//	</polar>
//
// Points must appear in decreasing AoA order. Returns nil if the file
// has no polar element or fewer than two points.
func ParsePolar(path string) *WingsuitPolar {
	dec, f, err := readXML(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var polar *WingsuitPolar
	inPolar := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "polar" {
				inPolar = true
				polar = &WingsuitPolar{}
				polar.Name, _ = attrValue(t, "name")
				polar.S, _ = parseFloatAttr(t, "s")
				polar.M, _ = parseFloatAttr(t, "m")
				continue
			}
			if t.Name.Local == "point" && inPolar {
				aoa, ok1 := parseFloatAttr(t, "aoa")
				cl, ok2 := parseFloatAttr(t, "cl")
				cd, ok3 := parseFloatAttr(t, "cd")
				if !ok1 || !ok2 || !ok3 {
					continue
				}
				polar.Points = append(polar.Points, PolarPoint{Aoa: aoa, Cl: cl, Cd: cd})
			}
		case xml.EndElement:
			if t.Name.Local == "polar" {
				inPolar = false
			}
		}
	}
	if polar == nil || len(polar.Points) < 2 {
		return nil
	}
	return polar
}

// ParseTelemetrySenders reads the txlist from settings.xml.
func ParseTelemetrySenders(path string) []TelemetrySenderConfig {
	configs := []TelemetrySenderConfig{}
	dec, f, err := readXML(path)
	if err != nil {
		return configs
	}
	defer f.Close()
	inTxList := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "txlist" {
				inTxList = true
				continue
			}
			if t.Name.Local == "transferItem" && inTxList {
				addr, _ := attrValue(t, "addr")
				port, _ := parseIntAttr(t, "port")
				typ, _ := attrValue(t, "type")
				maskStr, _ := attrValue(t, "data")
				mask, _ := strconv.ParseInt(maskStr, 10, 64)
				configs = append(configs, TelemetrySenderConfig{
					Addr: addr,
					Port: port,
					Type: typ,
					Mask: uint32(mask),
				})
			}
		case xml.EndElement:
			if t.Name.Local == "txlist" {
				inTxList = false
			}
		}
	}
	return configs
}
