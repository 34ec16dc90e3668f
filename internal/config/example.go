package config

// ExampleYAML is a three-layer supply chain: commodity producers feed
// intermediary firms, which feed final goods firms, which sell to households
// that supply labor back up the chain.
const ExampleYAML = `simulation:
  random_seed: 42
  rounds: 20
  result_path: results
  replace_bankrupt: true

network:
  connection_type: supply_chain
  connection_probability: 0.3
  max_connections_per_agent: 6
  supply_chain_probability: 0.7

climate:
  stress_enabled: true
  chronic_rules:
    - name: gradual_warming
      agent_types: [commodity_producer]
      continents: [all]
      productivity_stress_factor: 0.99
  shock_rules:
    - name: asian_drought
      agent_types: [commodity_producer, intermediary_firm]
      continents: [Asia]
      probability: 0.15
      productivity_stress_factor: 0.6
      overhead_stress_factor: 1.2
    - name: global_storm
      agent_types: [all]
      continents: [all]
      probability: 0.05
      overhead_stress_factor: 1.3

heterogeneity:
  enabled: true
  climate_vulnerability_productivity:
    commodity_producer: 1.3
    Asia: 1.2
    Africa: 1.2
  geographic_adaptation:
    heat:
      Africa: 1.3
      Europe: 0.9

agents:
  commodity_producer:
    count: 6
    initial_money: 120
    initial_inventory: {labor: 2}
    production:
      base_output_quantity: 10
      base_overhead: 4
      profit_margin: 0.2
      inputs: {labor: 0.2}
      outputs: [commodity]
  intermediary_firm:
    count: 4
    initial_money: 150
    production:
      base_output_quantity: 6
      base_overhead: 5
      profit_margin: 0.25
      inputs: {commodity: 1.0, labor: 0.2}
      outputs: [intermediate_good]
  final_goods_firm:
    count: 3
    initial_money: 180
    production:
      base_output_quantity: 4
      base_overhead: 6
      profit_margin: 0.3
      inputs: {intermediate_good: 1.0, labor: 0.3}
      outputs: [final_good]
  household:
    count: 12
    initial_money: 60
    initial_inventory: {final_good: 1}
    production:
      base_output_quantity: 0
      base_overhead: 1
      profit_margin: 0
      inputs: {final_good: 1}
      outputs: [labor]
    consumption:
      preference: final_good
      consumption_fraction: 0.5
      minimum_survival_consumption: 0.5
      budget_scaling: 0.05
    labor:
      endowment: 1.0
      wage: 2.0
`

// Example returns the parsed example configuration.
func Example() (*Config, error) {
	return Parse([]byte(ExampleYAML))
}
