package sqlexec

import (
	"fmt"
	"strconv"
	"strings"

	"djia-agent/internal/models"
)

// Rebind converts :name placeholders to the $n positional form lib/pq
// expects. A placeholder appearing twice binds the same argument once.
// Double colons are left alone so ::date casts survive.
func Rebind(sqlText string, params models.EntityBindings) (string, []interface{}, error) {
	var (
		out     strings.Builder
		args    []interface{}
		indexOf = map[string]int{}
		missing []string
	)

	i := 0
	for i < len(sqlText) {
		c := sqlText[i]
		if c != ':' {
			out.WriteByte(c)
			i++
			continue
		}
		// '::' is a cast, not a placeholder
		if i+1 < len(sqlText) && sqlText[i+1] == ':' {
			out.WriteString("::")
			i += 2
			continue
		}

		j := i + 1
		for j < len(sqlText) && isIdentChar(sqlText[j]) {
			j++
		}
		if j == i+1 {
			out.WriteByte(c)
			i++
			continue
		}

		name := sqlText[i+1 : j]
		idx, seen := indexOf[name]
		if !seen {
			value, ok := params[name]
			if !ok {
				missing = append(missing, name)
				i = j
				continue
			}
			args = append(args, value)
			idx = len(args)
			indexOf[name] = idx
		}
		out.WriteString("$" + strconv.Itoa(idx))
		i = j
	}

	if len(missing) > 0 {
		return "", nil, fmt.Errorf("missing bindings: %s", strings.Join(missing, ", "))
	}
	return out.String(), args, nil
}

func isIdentChar(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}
