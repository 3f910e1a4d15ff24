package github

import "fmt"

// workflowYAML renders the Actions workflow committed into tracked
// repositories. The workflow builds the project and reports the outcome
// back to the status callback endpoint.
func workflowYAML(branch, callbackURL string) string {
	return fmt.Sprintf(`name: AutoFlow Deploy

on:
  push:
    branches: [%s]
  workflow_dispatch:
    inputs:
      deployment_id:
        description: "AutoFlow deployment id"
        required: false

jobs:
  build:
    runs-on: ubuntu-latest
    steps:
      - uses: actions/checkout@v4
      - uses: actions/setup-node@v4
        with:
          node-version: 20
      - name: Install dependencies
        run: npm ci
      - name: Build
        id: build
        run: npm run build
      - name: Report success
        if: success()
        run: |
          curl -sf -X POST "%s" \
            -H "Content-Type: application/json" \
            -d "{\"deployment_id\": \"${{ github.event.inputs.deployment_id }}\", \"status\": \"success\", \"deployment_url\": \"${{ vars.DEPLOYMENT_URL }}\"}"
      - name: Report failure
        if: failure()
        run: |
          curl -sf -X POST "%s" \
            -H "Content-Type: application/json" \
            -d "{\"deployment_id\": \"${{ github.event.inputs.deployment_id }}\", \"status\": \"failed\", \"logs\": \"build failed\"}"
`, branch, callbackURL, callbackURL)
}
