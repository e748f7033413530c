package repository

type IssueFilter struct {
	Q        string // substring over taskName, description, hospitalUnit, category
	Category string // exact main category, or "Main: Sub" prefix match
	Hospital string
	Zone     string
	Priority string
	Status   string
	Owner    string // my-tasks: main owner or co-owner, excludes Closed
	Page     int    // 1-based
	PerPage  int    // 0 means default
	SortBy   string // any issue column, default dateLogged
	SortDir  string // asc|desc
}
