// Package main provides the entry point for GoStudio-Admin, a web-based
// management console for a studio storefront. It serves products, categories,
// appointments, customers, CMS pages and testimonials behind a role-based
// authorization core with cookie sessions, CSRF double-submit protection and
// per-client rate limiting. The application uses gorm for data persistence and
// Fiber for the web layer.
package main
