package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"castypos.com/posserver/internal/customer"
	"castypos.com/posserver/internal/license"
	"castypos.com/posserver/internal/plan"
	"castypos.com/posserver/internal/server"
	"castypos.com/posserver/internal/tenant"
)

const dateLayout = "2006-01-02"

// withServices opens the database for one admin command.
func (a *app) withServices(cmd *cobra.Command, fn func(ctx context.Context, svc *server.Services) error) error {
	ctx := cmd.Context()
	svc, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()
	return fn(ctx, svc)
}

func (a *app) backupCmd() *cobra.Command {
	var list bool
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write a compressed SQL dump of the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withServices(cmd, func(ctx context.Context, svc *server.Services) error {
				out := cmd.OutOrStdout()
				if list {
					backups, err := svc.Backup.List()
					if err != nil {
						return err
					}
					for _, b := range backups {
						fmt.Fprintf(out, "%s\t%d\n", b.Path, b.Size)
					}
					return nil
				}
				res, err := svc.Backup.CreateBackup(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "backup written: %s (%d bytes)\n", res.Path, res.Size)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "list existing backups instead of writing one")
	return cmd
}

func (a *app) tenantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Manage tenants",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "add NAME",
		Short: "Create a tenant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withServices(cmd, func(ctx context.Context, svc *server.Services) error {
				t, err := svc.Tenants.Create(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", t.TenantID, t.TenantName)
				return nil
			})
		},
	}, &cobra.Command{
		Use:   "list",
		Short: "List tenants",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withServices(cmd, func(ctx context.Context, svc *server.Services) error {
				tenants, err := svc.Tenants.GetAll(ctx)
				if err != nil {
					return err
				}
				for _, t := range tenants {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", t.TenantID, t.TenantName)
				}
				return nil
			})
		},
	})
	return cmd
}

func (a *app) customerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "customer",
		Short: "Manage customers",
	}
	cmd.AddCommand(a.customerAddCmd(), a.customerListCmd(), a.customerUpdateCmd(), a.customerDeleteCmd())
	return cmd
}

// customerFlags registers the contact fields shared by add and update.
func customerFlags(cmd *cobra.Command, c *customer.Customer) {
	cmd.Flags().StringVar(&c.ContactName, "contact", "", "contact name")
	cmd.Flags().StringVar(&c.Email, "email", "", "contact email")
	cmd.Flags().StringVar(&c.Phone, "phone", "", "contact phone")
	cmd.Flags().StringVar(&c.Notes, "notes", "", "notes")
}

func (a *app) customerAddCmd() *cobra.Command {
	var (
		tenantRef string
		c         customer.Customer
	)
	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Create a customer under a tenant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withServices(cmd, func(ctx context.Context, svc *server.Services) error {
				t, err := resolveTenant(ctx, svc.Tenants, tenantRef)
				if err != nil {
					return err
				}
				c.TenantID = t.TenantID
				c.CustomerName = args[0]
				created, err := svc.Customers.Create(ctx, &c)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", created.CustomerID, created.CustomerName)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&tenantRef, "tenant", "", "tenant id or name")
	customerFlags(cmd, &c)
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

func (a *app) customerListCmd() *cobra.Command {
	var tenantRef string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a tenant's customers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withServices(cmd, func(ctx context.Context, svc *server.Services) error {
				t, err := resolveTenant(ctx, svc.Tenants, tenantRef)
				if err != nil {
					return err
				}
				customers, err := svc.Customers.GetAll(ctx, t.TenantID)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				for _, c := range customers {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.CustomerID, c.CustomerName, c.ContactName, c.Email)
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&tenantRef, "tenant", "", "tenant id or name")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

func (a *app) customerUpdateCmd() *cobra.Command {
	var (
		tenantRef, name string
		in              customer.Customer
	)
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Change a customer's name or contact details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withServices(cmd, func(ctx context.Context, svc *server.Services) error {
				t, err := resolveTenant(ctx, svc.Tenants, tenantRef)
				if err != nil {
					return err
				}
				c, err := svc.Customers.Get(ctx, t.TenantID, args[0])
				if err != nil {
					return err
				}
				// only flags given on the command line replace stored values
				flags := cmd.Flags()
				if flags.Changed("name") {
					if strings.TrimSpace(name) == "" {
						return errors.New("customer name must not be empty")
					}
					c.CustomerName = name
				}
				if flags.Changed("contact") {
					c.ContactName = in.ContactName
				}
				if flags.Changed("email") {
					c.Email = in.Email
				}
				if flags.Changed("phone") {
					c.Phone = in.Phone
				}
				if flags.Changed("notes") {
					c.Notes = in.Notes
				}
				if err := svc.Customers.Update(ctx, c); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", c.CustomerID, c.CustomerName)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&tenantRef, "tenant", "", "tenant id or name")
	cmd.Flags().StringVar(&name, "name", "", "customer name")
	customerFlags(cmd, &in)
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

func (a *app) customerDeleteCmd() *cobra.Command {
	var tenantRef string
	cmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a customer; its licenses are kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withServices(cmd, func(ctx context.Context, svc *server.Services) error {
				t, err := resolveTenant(ctx, svc.Tenants, tenantRef)
				if err != nil {
					return err
				}
				ok, err := svc.Customers.Exists(ctx, t.TenantID, args[0])
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("customer %q not found", args[0])
				}
				if err := svc.Customers.Delete(ctx, t.TenantID, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&tenantRef, "tenant", "", "tenant id or name")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

func (a *app) licenseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "license",
		Short: "Issue and manage licenses",
	}
	cmd.AddCommand(a.licenseIssueCmd(), a.licenseListCmd(), a.licenseActivateCmd(), a.licenseRevokeCmd(), a.licenseEventsCmd())
	return cmd
}

func (a *app) licenseIssueCmd() *cobra.Command {
	var (
		tenantRef, customerID, planName, status, validFrom, validUntil, key, subscription string
		maxDevices                                                                        int
	)
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a new license key",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := plan.ParseID(planName)
			if err != nil {
				return err
			}
			in := license.IssueInput{
				CustomerID:     customerID,
				SubscriptionID: subscription,
				Plan:           p,
				Key:            key,
			}
			if status != "" {
				if in.Status, err = license.ParseStatus(status); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("max-devices") {
				in.MaxDevices = &maxDevices
			}
			if in.ValidFrom, err = parseDate(validFrom); err != nil {
				return err
			}
			if validUntil != "" {
				until, err := parseDate(validUntil)
				if err != nil {
					return err
				}
				in.ValidUntil = &until
			}

			return a.withServices(cmd, func(ctx context.Context, svc *server.Services) error {
				t, err := resolveTenant(ctx, svc.Tenants, tenantRef)
				if err != nil {
					return err
				}
				in.TenantID = t.TenantID
				lic, err := svc.Licenses.Issue(ctx, in)
				if err != nil {
					return err
				}
				return printLicenses(cmd.OutOrStdout(), svc.Plans, []license.License{*lic})
			})
		},
	}
	cmd.Flags().StringVar(&tenantRef, "tenant", "", "tenant id or name")
	cmd.Flags().StringVar(&customerID, "customer", "", "customer id")
	cmd.Flags().StringVar(&subscription, "subscription", "", "billing subscription id")
	cmd.Flags().StringVar(&planName, "plan", string(plan.Trial), "plan: trial, starter or pro")
	cmd.Flags().StringVar(&status, "status", "", "initial status (default active)")
	cmd.Flags().IntVar(&maxDevices, "max-devices", 0, "seat limit (default from plan)")
	cmd.Flags().StringVar(&validFrom, "valid-from", "", "first valid day, YYYY-MM-DD (default now)")
	cmd.Flags().StringVar(&validUntil, "valid-until", "", "expiry day, YYYY-MM-DD")
	cmd.Flags().StringVar(&key, "key", "", "explicit license key (default generated)")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

func (a *app) licenseListCmd() *cobra.Command {
	var tenantRef string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a tenant's licenses",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withServices(cmd, func(ctx context.Context, svc *server.Services) error {
				t, err := resolveTenant(ctx, svc.Tenants, tenantRef)
				if err != nil {
					return err
				}
				licenses, err := svc.Licenses.ListForTenant(ctx, t.TenantID)
				if err != nil {
					return err
				}
				return printLicenses(cmd.OutOrStdout(), svc.Plans, licenses)
			})
		},
	}
	cmd.Flags().StringVar(&tenantRef, "tenant", "", "tenant id or name")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

func (a *app) licenseActivateCmd() *cobra.Command {
	var planName, validUntil string
	cmd := &cobra.Command{
		Use:   "activate KEY",
		Short: "Mark a license paid and active on a plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := plan.ParseID(planName)
			if err != nil {
				return err
			}
			var until *time.Time
			if validUntil != "" {
				d, err := parseDate(validUntil)
				if err != nil {
					return err
				}
				until = &d
			}
			return a.withServices(cmd, func(ctx context.Context, svc *server.Services) error {
				lic, err := svc.Licenses.GetByKey(ctx, args[0])
				if err != nil {
					return err
				}
				lic, err = svc.Licenses.Activate(ctx, lic.TenantID, lic.LicenseID, p, until)
				if err != nil {
					return err
				}
				return printLicenses(cmd.OutOrStdout(), svc.Plans, []license.License{*lic})
			})
		},
	}
	cmd.Flags().StringVar(&planName, "plan", string(plan.Starter), "plan: trial, starter or pro")
	cmd.Flags().StringVar(&validUntil, "valid-until", "", "expiry day, YYYY-MM-DD (default open-ended)")
	return cmd
}

func (a *app) licenseRevokeCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "revoke KEY",
		Short: "Revoke a license",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withServices(cmd, func(ctx context.Context, svc *server.Services) error {
				lic, err := svc.Licenses.GetByKey(ctx, args[0])
				if err != nil {
					return err
				}
				if err := svc.Licenses.Revoke(ctx, lic.TenantID, lic.LicenseID, reason); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "revoked %s\n", lic.LicenseKey)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "reason recorded in the license event log")
	return cmd
}

func (a *app) licenseEventsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "events KEY",
		Short: "Show a license's event log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withServices(cmd, func(ctx context.Context, svc *server.Services) error {
				lic, err := svc.Licenses.GetByKey(ctx, args[0])
				if err != nil {
					return err
				}
				events, err := svc.Events.ListForLicense(ctx, lic.TenantID, lic.LicenseID)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				for _, e := range events {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.EventID, e.CreatedAt.Format(time.RFC3339), e.EventType, e.Metadata)
				}
				return w.Flush()
			})
		},
	}
}

func resolveTenant(ctx context.Context, tenants *tenant.Service, ref string) (*tenant.Tenant, error) {
	t, err := tenants.Get(ctx, ref)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, tenant.ErrNotFound) {
		return nil, err
	}
	t, err = tenants.GetByName(ctx, ref)
	if errors.Is(err, tenant.ErrNotFound) {
		return nil, fmt.Errorf("tenant %q not found", ref)
	}
	return t, err
}

func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	d, err := time.ParseInLocation(dateLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", value)
	}
	return d, nil
}

func printLicenses(out io.Writer, plans *plan.Catalog, licenses []license.License) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tPLAN\tSTATUS\tSEATS\tVALID FROM\tVALID UNTIL")
	for _, l := range licenses {
		seats := "unlimited"
		if l.MaxDevices != nil && *l.MaxDevices > 0 {
			seats = fmt.Sprint(*l.MaxDevices)
		}
		until := "-"
		if l.ValidUntil != nil {
			until = l.ValidUntil.Format(dateLayout)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			l.LicenseKey, plans.Label(l.Plan), l.Status, seats, l.ValidFrom.Format(dateLayout), until)
	}
	return w.Flush()
}
