package pagination

import "testing"

func TestPaginationParams_Validate(t *testing.T) {
	tests := []struct {
		name        string
		page        int
		perPage     int
		wantPage    int
		wantPerPage int
	}{
		{name: "zero values get defaults", page: 0, perPage: 0, wantPage: 1, wantPerPage: 15},
		{name: "negative page clamped", page: -3, perPage: 20, wantPage: 1, wantPerPage: 20},
		{name: "per page capped at 100", page: 2, perPage: 500, wantPage: 2, wantPerPage: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := PaginationParams{Page: tt.page, PerPage: tt.perPage}
			p.Validate()
			if p.Page != tt.wantPage || p.PerPage != tt.wantPerPage {
				t.Fatalf("got page=%d perPage=%d, want page=%d perPage=%d", p.Page, p.PerPage, tt.wantPage, tt.wantPerPage)
			}
		})
	}
}

func TestPaginationParams_Offset(t *testing.T) {
	p := PaginationParams{Page: 3, PerPage: 20}
	if got := p.Offset(); got != 40 {
		t.Fatalf("Offset = %d, want 40", got)
	}
}

func TestNewPagination(t *testing.T) {
	pg := NewPagination(2, 10, 35)
	if pg.TotalPages != 4 {
		t.Fatalf("TotalPages = %d, want 4", pg.TotalPages)
	}
	if !pg.HasNext || !pg.HasPrev {
		t.Fatalf("expected both HasNext and HasPrev on a middle page")
	}

	empty := NewPagination(1, 10, 0)
	if empty.TotalPages != 1 {
		t.Fatalf("TotalPages = %d for empty set, want 1", empty.TotalPages)
	}
	if empty.HasNext {
		t.Fatalf("empty set cannot have a next page")
	}
}

func TestNewPaginatedResult(t *testing.T) {
	result := NewPaginatedResult([]string{"a", "b"}, 1, 15, 2)
	if len(result.Items) != 2 {
		t.Fatalf("Items = %d, want 2", len(result.Items))
	}
	if result.Pagination.Total != 2 {
		t.Fatalf("Total = %d, want 2", result.Pagination.Total)
	}
}
