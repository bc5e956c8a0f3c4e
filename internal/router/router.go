package router

import (
	"net/http"

	"github.com/hostbay/backend/internal/auth"
	"github.com/hostbay/backend/internal/billing"
	"github.com/hostbay/backend/internal/console"
	"github.com/hostbay/backend/internal/middleware"
)

// New returns an http.Handler that serves the API under /api/v1.
// The gateway webhook is public (authenticated by its HMAC signature);
// everything else behind the ops routes requires a bearer token.
func New(authHandler *auth.Handler, billingHandler *billing.Handler, consoleHandler *console.Handler, validator middleware.TokenValidator) http.Handler {
	mux := http.NewServeMux()
	base := "/api/v1"

	mux.HandleFunc("POST "+base+"/auth/register", authHandler.Register)
	mux.HandleFunc("POST "+base+"/auth/login", authHandler.Login)

	mux.HandleFunc("POST "+base+"/payments/webhook", billingHandler.Webhook)

	authed := middleware.BearerAuth(validator)
	mux.Handle("POST "+base+"/payment-records", authed(http.HandlerFunc(billingHandler.CreateRecord)))
	mux.Handle("GET "+base+"/payment-records/{id}", authed(http.HandlerFunc(billingHandler.GetRecord)))
	mux.Handle("POST "+base+"/payment-records/{id}/sync", authed(http.HandlerFunc(billingHandler.Sync)))

	mux.Handle("GET "+base+"/invoices/{id}", authed(http.HandlerFunc(billingHandler.GetInvoice)))

	mux.Handle("GET "+base+"/accounts", authed(http.HandlerFunc(billingHandler.ListAccounts)))
	mux.Handle("GET "+base+"/accounts/{id}", authed(http.HandlerFunc(billingHandler.GetAccount)))
	mux.Handle("GET "+base+"/accounts/{id}/transactions", authed(http.HandlerFunc(billingHandler.ListAccountTransactions)))
	mux.Handle("GET "+base+"/accounts/{id}/payment-records", authed(http.HandlerFunc(billingHandler.ListAccountRecords)))

	mux.Handle("POST "+base+"/virtual-machines/{id}/reboot", authed(http.HandlerFunc(consoleHandler.Reboot)))
	mux.Handle("GET "+base+"/console-logs/{id}", authed(http.HandlerFunc(consoleHandler.GetLog)))

	return mux
}
