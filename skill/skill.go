package skill

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// 技能定义错误.
var (
	ErrMissingID       = errors.New("skill: missing id")
	ErrMissingEndpoint = errors.New("skill: missing endpoint")
	ErrInvalidEndpoint = errors.New("skill: invalid endpoint")
	ErrUnknownSkill    = errors.New("skill: unknown skill")
	ErrDuplicateSkill  = errors.New("skill: duplicate id")
)

// Skill identifies a remotely hosted skill.
type Skill struct {
	ID          string `json:"id" yaml:"id"`
	AppID       string `json:"appId,omitempty" yaml:"app_id"`
	Endpoint    string `json:"endpoint" yaml:"endpoint"`
	Name        string `json:"name,omitempty" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description"`
}

// Validate checks the identity fields required to forward to the skill.
func (s Skill) Validate() error {
	if s.ID == "" {
		return ErrMissingID
	}
	if s.Endpoint == "" {
		return fmt.Errorf("%w: %s", ErrMissingEndpoint, s.ID)
	}
	u, err := url.Parse(s.Endpoint)
	if err != nil || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidEndpoint, s.Endpoint)
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidEndpoint, u.Scheme)
	}
	return nil
}

// ActivityURL returns the url an activity with the given id is posted to.
func (s Skill) ActivityURL(activityID string) string {
	return strings.TrimRight(s.Endpoint, "/") + "/activities/" + url.PathEscape(activityID)
}

// Audience is the token audience for calls to this skill: its app id, or its id.
func (s Skill) Audience() string {
	if s.AppID != "" {
		return s.AppID
	}
	return s.ID
}

// InvokeResponse is the raw outcome of one forward.
type InvokeResponse struct {
	Status int
	Body   []byte
}

// IsSuccess reports whether the status is in 200-299.
func (r *InvokeResponse) IsSuccess() bool {
	return r != nil && r.Status >= 200 && r.Status <= 299
}

// Catalog 技能目录
type Catalog struct {
	skills map[string]Skill
}

// NewCatalog validates and indexes skills by id.
func NewCatalog(skills ...Skill) (*Catalog, error) {
	c := &Catalog{skills: make(map[string]Skill, len(skills))}
	for _, s := range skills {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.skills[s.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSkill, s.ID)
		}
		c.skills[s.ID] = s
	}
	return c, nil
}

// Lookup returns the skill with the given id.
func (c *Catalog) Lookup(id string) (Skill, error) {
	s, ok := c.skills[id]
	if !ok {
		return Skill{}, fmt.Errorf("%w: %s", ErrUnknownSkill, id)
	}
	return s, nil
}

// IDs returns the registered skill ids sorted.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.skills))
	for id := range c.skills {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
