package navigation

// Route names used by the console.
const (
	RouteLogin             = "Login"
	RouteDashboard         = "Dashboard"
	RouteAdvertisers       = "Advertisers"
	RouteAdvertiserDetail  = "AdvertiserDetail"
	RouteCampaigns         = "Campaigns"
	RouteCampaignDetail    = "CampaignDetail"
	RouteCreatives         = "Creatives"
	RouteCreativeDetail    = "CreativeDetail"
	RouteReports           = "Reports"
	RoutePerformanceReport = "PerformanceReport"
	RouteCustomReport      = "CustomReport"
	RouteSettings          = "Settings"
	RouteUsers             = "Users"
	RouteRoles             = "Roles"
	RouteNotFound          = "NotFound"
)

// DefaultHome is where a login without a return target lands.
const DefaultHome = "/dashboard"

// DefaultRoutes returns the console's route table.
func DefaultRoutes() []Route {
	return []Route{
		{Name: RouteLogin, Path: "/login", Title: "Login"},
		{
			Path:         "/",
			Redirect:     DefaultHome,
			RequiresAuth: true,
			Children: []Route{
				{Name: RouteDashboard, Path: "/dashboard", Title: "Dashboard"},
				{Name: RouteAdvertisers, Path: "/advertisers", Title: "Advertisers"},
				{Name: RouteAdvertiserDetail, Path: "/advertisers/:id", Title: "Advertiser Detail", Hidden: true},
				{Name: RouteCampaigns, Path: "/campaigns", Title: "Campaigns"},
				{Name: RouteCampaignDetail, Path: "/campaigns/:id", Title: "Campaign Detail", Hidden: true},
				{Name: RouteCreatives, Path: "/creatives", Title: "Creatives"},
				{Name: RouteCreativeDetail, Path: "/creatives/:id", Title: "Creative Detail", Hidden: true},
				{
					Name:  RouteReports,
					Path:  "/reports",
					Title: "Reports",
					Children: []Route{
						{Name: RoutePerformanceReport, Path: "performance", Title: "Performance Report"},
						{Name: RouteCustomReport, Path: "custom", Title: "Custom Report"},
					},
				},
				{
					Name:  RouteSettings,
					Path:  "/settings",
					Title: "Settings",
					Children: []Route{
						{Name: RouteUsers, Path: "users", Title: "User Management"},
						{Name: RouteRoles, Path: "roles", Title: "Roles & Permissions"},
					},
				},
			},
		},
		{Name: RouteNotFound, Path: "/:pathMatch(.*)*", Title: "Page Not Found"},
	}
}
