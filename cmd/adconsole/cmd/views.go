package cmd

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/jmcleod/adconsole/api"
	"github.com/jmcleod/adconsole/navigation"
	"github.com/jmcleod/adconsole/notify"
)

// registerViews binds a renderer to every console route.
func (a *app) registerViews() {
	views := map[string]navigation.View{
		navigation.RouteLogin:             a.loginView,
		navigation.RouteDashboard:         a.dashboardView,
		navigation.RouteAdvertisers:       a.advertisersView,
		navigation.RouteAdvertiserDetail:  a.advertiserDetailView,
		navigation.RouteCampaigns:         a.campaignsView,
		navigation.RouteCampaignDetail:    a.campaignDetailView,
		navigation.RouteCreatives:         a.creativesView,
		navigation.RouteCreativeDetail:    a.creativeDetailView,
		navigation.RouteReports:           a.reportJobsView,
		navigation.RoutePerformanceReport: a.performanceView,
		navigation.RouteCustomReport:      a.customReportView,
		navigation.RouteSettings:          a.settingsView,
		navigation.RouteUsers:             a.usersView,
		navigation.RouteRoles:             a.rolesView,
		navigation.RouteNotFound:          a.notFoundView,
	}
	for name, v := range views {
		a.router.OnEnter(name, v)
	}
}

// listParams reads page, per_page and filters from a location query.
func listParams(q url.Values) api.ListParams {
	p := api.ListParams{Filters: map[string]string{}}
	p.Page, _ = strconv.Atoi(q.Get("page"))
	p.PerPage, _ = strconv.Atoi(q.Get("per_page"))
	for k := range q {
		p.Filters[k] = q.Get(k)
	}
	return p
}

func paramID(loc navigation.Location) (int64, error) {
	v, err := strconv.ParseInt(loc.Param("id"), 10, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid id %q", loc.Param("id"))
	}
	return v, nil
}

func (a *app) loginView(_ context.Context, loc navigation.Location) error {
	printTitle(a.out, loc.Title)
	if target := loc.Query.Get(navigation.ReturnParam); target != "" {
		fmt.Fprintf(a.out, "Log in to continue to %s.\n", target)
		return nil
	}
	fmt.Fprintln(a.out, "Log in to continue.")
	return nil
}

func (a *app) dashboardView(ctx context.Context, loc navigation.Location) error {
	printTitle(a.out, loc.Title)
	snap := a.store.Snapshot()
	if snap.Identity != nil {
		fmt.Fprintf(a.out, "Signed in as %s\n\n", displayName(snap))
	}
	stats, err := a.client.Reports.Performance(ctx, loc.Query)
	if err != nil {
		return err
	}
	printMetrics(a.out, stats)
	fmt.Fprintln(a.out)
	for _, e := range a.router.Table().Menu() {
		if e.Path == "/login" {
			continue
		}
		fmt.Fprintf(a.out, "%s%-24s %s\n", strings.Repeat("  ", e.Depth), e.Title, mutedStyle.Render(e.Path))
	}
	return nil
}

func (a *app) advertisersView(ctx context.Context, loc navigation.Location) error {
	page, err := a.client.Advertisers.List(ctx, listParams(loc.Query))
	if err != nil {
		return err
	}
	printTitle(a.out, loc.Title)
	rows := make([][]string, 0, len(page.Items))
	for _, adv := range page.Items {
		rows = append(rows, []string{id(adv.ID), adv.Name, adv.CompanyName, adv.Status, money(adv.Balance)})
	}
	printTable(a.out, []string{"ID", "NAME", "COMPANY", "STATUS", "BALANCE"}, rows)
	printPageFooter(a.out, page)
	return nil
}

func (a *app) advertiserDetailView(ctx context.Context, loc navigation.Location) error {
	advID, err := paramID(loc)
	if err != nil {
		return err
	}
	adv, err := a.client.Advertisers.Get(ctx, advID)
	if err != nil {
		return err
	}
	printTitle(a.out, loc.Title)
	printFields(a.out,
		"ID", id(adv.ID),
		"Name", adv.Name,
		"Company", adv.CompanyName,
		"Credit code", adv.CreditCode,
		"Contact", adv.ContactPerson,
		"Phone", adv.ContactPhone,
		"Email", adv.ContactEmail,
		"Industry", adv.Industry,
		"Status", adv.Status,
		"Rejection reason", adv.RejectionReason,
		"Balance", money(adv.Balance),
		"Created", adv.CreatedAt,
	)
	return nil
}

func (a *app) campaignsView(ctx context.Context, loc navigation.Location) error {
	page, err := a.client.Campaigns.List(ctx, listParams(loc.Query))
	if err != nil {
		return err
	}
	printTitle(a.out, loc.Title)
	rows := make([][]string, 0, len(page.Items))
	for _, c := range page.Items {
		rows = append(rows, []string{id(c.ID), c.Name, id(c.AdvertiserID), c.Status, money(c.DailyBudget), c.StartDate, c.EndDate})
	}
	printTable(a.out, []string{"ID", "NAME", "ADVERTISER", "STATUS", "DAILY BUDGET", "START", "END"}, rows)
	printPageFooter(a.out, page)
	return nil
}

func (a *app) campaignDetailView(ctx context.Context, loc navigation.Location) error {
	campaignID, err := paramID(loc)
	if err != nil {
		return err
	}
	c, err := a.client.Campaigns.Get(ctx, campaignID)
	if err != nil {
		return err
	}
	stats, err := a.client.Campaigns.Statistics(ctx, campaignID, loc.Query)
	if err != nil {
		return err
	}
	printTitle(a.out, loc.Title)
	printFields(a.out,
		"ID", id(c.ID),
		"Name", c.Name,
		"Advertiser", id(c.AdvertiserID),
		"Status", c.Status,
		"Daily budget", money(c.DailyBudget),
		"Total budget", money(c.TotalBudget),
		"Bid", c.BidStrategy+" "+money(c.BidAmount),
		"Goal", c.OptimizationGoal,
		"Start", c.StartDate,
		"End", c.EndDate,
		"Rejection reason", c.RejectionReason,
	)
	fmt.Fprintln(a.out)
	printMetrics(a.out, stats)
	return nil
}

func (a *app) creativesView(ctx context.Context, loc navigation.Location) error {
	page, err := a.client.Creatives.List(ctx, listParams(loc.Query))
	if err != nil {
		return err
	}
	printTitle(a.out, loc.Title)
	rows := make([][]string, 0, len(page.Items))
	for _, c := range page.Items {
		rows = append(rows, []string{id(c.ID), c.Name, id(c.CampaignID), c.Type, c.Format, c.Status})
	}
	printTable(a.out, []string{"ID", "NAME", "CAMPAIGN", "TYPE", "FORMAT", "STATUS"}, rows)
	printPageFooter(a.out, page)
	return nil
}

func (a *app) creativeDetailView(ctx context.Context, loc navigation.Location) error {
	creativeID, err := paramID(loc)
	if err != nil {
		return err
	}
	c, err := a.client.Creatives.Get(ctx, creativeID)
	if err != nil {
		return err
	}
	printTitle(a.out, loc.Title)
	printFields(a.out,
		"ID", id(c.ID),
		"Name", c.Name,
		"Advertiser", id(c.AdvertiserID),
		"Campaign", id(c.CampaignID),
		"Type", c.Type,
		"Format", c.Format,
		"Status", c.Status,
		"Title", c.Title,
		"Landing URL", c.LandingURL,
		"File", c.FilePath,
		"Impressions", strconv.FormatInt(c.Impressions, 10),
		"Clicks", strconv.FormatInt(c.Clicks, 10),
		"Spend", money(c.Spend),
	)
	return nil
}

func (a *app) reportJobsView(ctx context.Context, loc navigation.Location) error {
	page, err := a.client.Reports.ListJobs(ctx, listParams(loc.Query))
	if err != nil {
		return err
	}
	printTitle(a.out, loc.Title)
	printJobs(a, page.Items)
	printPageFooter(a.out, page)
	return nil
}

func printJobs(a *app, jobs []api.ReportJob) {
	rows := make([][]string, 0, len(jobs))
	for _, j := range jobs {
		rows = append(rows, []string{id(j.ID), j.Name, j.ReportType, j.Status, j.StartDate, j.EndDate})
	}
	printTable(a.out, []string{"ID", "NAME", "TYPE", "STATUS", "START", "END"}, rows)
}

func (a *app) performanceView(ctx context.Context, loc navigation.Location) error {
	stats, err := a.client.Reports.Performance(ctx, loc.Query)
	if err != nil {
		return err
	}
	printTitle(a.out, loc.Title)
	printMetrics(a.out, stats)
	return nil
}

func (a *app) customReportView(ctx context.Context, loc navigation.Location) error {
	stats, err := a.client.Reports.Custom(ctx, loc.Query)
	if err != nil {
		return err
	}
	printTitle(a.out, loc.Title)
	printMetrics(a.out, stats)
	return nil
}

func (a *app) settingsView(_ context.Context, loc navigation.Location) error {
	printTitle(a.out, loc.Title)
	for _, e := range a.router.Table().Menu() {
		if strings.HasPrefix(e.Path, loc.Path+"/") {
			fmt.Fprintf(a.out, "%-24s %s\n", e.Title, mutedStyle.Render(e.Path))
		}
	}
	return nil
}

func (a *app) usersView(ctx context.Context, loc navigation.Location) error {
	page, err := a.client.Users.List(ctx, listParams(loc.Query))
	if err != nil {
		return err
	}
	printTitle(a.out, loc.Title)
	rows := make([][]string, 0, len(page.Items))
	for _, u := range page.Items {
		rows = append(rows, []string{
			id(u.ID), u.Username, u.Email, strings.Join(u.Roles, ","),
			strconv.FormatBool(u.IsActive), strconv.FormatBool(u.IsSuperuser), optionalID(u.AdvertiserID),
		})
	}
	printTable(a.out, []string{"ID", "USERNAME", "EMAIL", "ROLES", "ACTIVE", "SUPERUSER", "ADVERTISER"}, rows)
	printPageFooter(a.out, page)
	return nil
}

func (a *app) rolesView(ctx context.Context, loc navigation.Location) error {
	roles, err := a.client.Users.Roles(ctx)
	if err != nil {
		return err
	}
	printTitle(a.out, loc.Title)
	rows := make([][]string, 0, len(roles))
	for _, r := range roles {
		rows = append(rows, []string{id(r.ID), r.Name, r.Description})
	}
	printTable(a.out, []string{"ID", "NAME", "DESCRIPTION"}, rows)
	return nil
}

func (a *app) notFoundView(_ context.Context, loc navigation.Location) error {
	a.notifier.Notify(notify.LevelInfo, notify.MsgPageNotFound, "")
	return nil
}
