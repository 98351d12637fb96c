package http

import (
	"net/url"
	"strconv"
	"strings"

	commonerrors "github.com/AlibekovAA/defis-users/internal/common/errors"
)

// ParsePositiveID parses a path or query identifier. Anything other than a
// base-10 integer greater than zero is rejected.
func ParsePositiveID(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, commonerrors.ErrInvalidUserID
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, commonerrors.ErrInvalidUserID.WithMessage("invalid user id: " + raw)
	}
	return id, nil
}

// ParseIDList accepts repeated values and comma separated lists, e.g.
// ?id=1&id=2,3.
func ParseIDList(values []string) ([]int64, error) {
	ids := make([]int64, 0, len(values))
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			id, err := ParsePositiveID(part)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// ParsePage reads ?offset= and ?limit=. A missing value is returned as 0;
// range checks are left to the caller.
func ParsePage(query url.Values) (offset, limit int, err error) {
	parse := func(key string) (int, error) {
		raw := strings.TrimSpace(query.Get(key))
		if raw == "" {
			return 0, nil
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return 0, commonerrors.ErrInvalidPage.WithMessage("invalid " + key + ": " + raw)
		}
		return n, nil
	}
	if offset, err = parse("offset"); err != nil {
		return 0, 0, err
	}
	if limit, err = parse("limit"); err != nil {
		return 0, 0, err
	}
	return offset, limit, nil
}
