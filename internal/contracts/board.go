package contracts

import (
	"sort"
	"time"
)

// BoardType distinguishes industry boards from concept (theme) boards
type BoardType string

const (
	BoardTypeIndustry BoardType = "industry"
	BoardTypeConcept  BoardType = "concept"
)

// Valid reports whether t is a known board type
func (t BoardType) Valid() bool {
	return t == BoardTypeIndustry || t == BoardTypeConcept
}

// Provider is an external board data source
type Provider struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}

// Board is a named grouping of stocks from one provider, keyed by (provider, code).
// ID is the stable ordering key used for tie-breaks.
type Board struct {
	ID           int64     `json:"id"`
	ProviderCode string    `json:"provider_code"`
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	Type         BoardType `json:"type"`
	IsBroadIndex bool      `json:"is_broad_index"`
	IsActive     bool      `json:"is_active"`
	MemberCount  int       `json:"member_count"` // 레지스트리 동기화 시점 캐시
}

// RuleLevel is the severity of a blacklist rule
type RuleLevel string

const (
	RuleBlack RuleLevel = "BLACK" // 완전 제외
	RuleGray  RuleLevel = "GRAY"  // 집계는 유지, Top/Driver 표시에서만 제외
)

// BlacklistRule matches board names by keyword
type BlacklistRule struct {
	ID       int64     `json:"id"`
	Keyword  string    `json:"keyword"`
	Level    RuleLevel `json:"level"`
	Reason   string    `json:"reason"`
	IsActive bool      `json:"is_active"`
}

// BoardSet is the immutable, filtered board set for one run.
// ⭐ SSOT: Registry → Heat/Composer 보드 전달 (프로세스 전역 캐시 금지)
// Safe for concurrent reads; there are no mutators.
type BoardSet struct {
	date     time.Time
	boards   []Board // ID 오름차순
	index    map[int64]int
	gray     map[int64]bool
	excluded map[int64]string
}

// NewBoardSet builds a BoardSet. boards are copied and sorted by ID.
func NewBoardSet(date time.Time, boards []Board, gray map[int64]bool, excluded map[int64]string) *BoardSet {
	bs := &BoardSet{
		date:     date,
		boards:   append([]Board(nil), boards...),
		index:    make(map[int64]int, len(boards)),
		gray:     make(map[int64]bool, len(gray)),
		excluded: make(map[int64]string, len(excluded)),
	}
	sort.Slice(bs.boards, func(i, j int) bool { return bs.boards[i].ID < bs.boards[j].ID })
	for i, b := range bs.boards {
		bs.index[b.ID] = i
	}
	for id, g := range gray {
		if g {
			bs.gray[id] = true
		}
	}
	for id, reason := range excluded {
		bs.excluded[id] = reason
	}
	return bs
}

// Date returns the trade date the set was built for
func (s *BoardSet) Date() time.Time { return s.date }

// Boards returns a copy of the active boards in ID order
func (s *BoardSet) Boards() []Board {
	return append([]Board(nil), s.boards...)
}

// Get looks up an active board by ID
func (s *BoardSet) Get(id int64) (Board, bool) {
	i, ok := s.index[id]
	if !ok {
		return Board{}, false
	}
	return s.boards[i], true
}

// Contains reports whether id is in the active set
func (s *BoardSet) Contains(id int64) bool {
	_, ok := s.index[id]
	return ok
}

// IsGray reports whether an active board matched only GRAY rules
func (s *BoardSet) IsGray(id int64) bool {
	return s.gray[id]
}

// IsExcluded returns the exclusion reason for a filtered-out board
func (s *BoardSet) IsExcluded(id int64) (bool, string) {
	reason, ok := s.excluded[id]
	return ok, reason
}

// Excluded returns a copy of the exclusion map (board ID → reason)
func (s *BoardSet) Excluded() map[int64]string {
	out := make(map[int64]string, len(s.excluded))
	for k, v := range s.excluded {
		out[k] = v
	}
	return out
}

// Count returns the number of active boards
func (s *BoardSet) Count() int {
	return len(s.boards)
}

// GrayCount returns the number of GRAY boards in the active set
func (s *BoardSet) GrayCount() int {
	return len(s.gray)
}
