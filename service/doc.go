// Package service exposes one typed wrapper per FlowX REST resource. The
// services contain no logic beyond building paths and payloads; caching and
// error absorption live in the store package.
package service
