package cluster

import (
	"fmt"
	"regexp"
	"strings"
)

// partition is the parsed model response: module names in response order
// mapped to component ids.
type partition struct {
	order   []string
	modules map[string][]string
}

var moduleBlockRe = regexp.MustCompile(`(?s)<module\s+name="([^"]+)"\s*>(.*?)</module>`)

// parsePartition extracts the sentinel-delimited partition from a model
// response. Missing sentinels or an empty module set are malformed; the
// caller degrades to a single leaf module.
func parsePartition(response string) (*partition, error) {
	start := strings.Index(response, "<partition>")
	end := strings.LastIndex(response, "</partition>")
	if start < 0 || end < 0 || end <= start {
		return nil, fmt.Errorf("missing partition sentinel tags")
	}
	body := response[start+len("<partition>") : end]

	matches := moduleBlockRe.FindAllStringSubmatch(body, -1)
	if len(matches) == 0 {
		return nil, fmt.Errorf("no module blocks inside partition")
	}

	p := &partition{modules: make(map[string][]string)}
	for _, m := range matches {
		name := sanitizeModuleName(m[1])
		if name == "" {
			continue
		}
		var ids []string
		for _, line := range strings.Split(m[2], "\n") {
			id := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "-"))
			if id == "" || strings.HasPrefix(id, "<") {
				continue
			}
			ids = append(ids, id)
		}
		if len(ids) == 0 {
			continue
		}
		if _, exists := p.modules[name]; exists {
			p.modules[name] = append(p.modules[name], ids...)
			continue
		}
		p.order = append(p.order, name)
		p.modules[name] = ids
	}

	if len(p.order) == 0 {
		return nil, fmt.Errorf("partition contains no usable modules")
	}
	return p, nil
}

// sanitizeModuleName trims whitespace and the characters that would break
// artifact paths derived from module names.
func sanitizeModuleName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '-'
		}
		return r
	}, name)
	return strings.Trim(name, "-. ")
}
