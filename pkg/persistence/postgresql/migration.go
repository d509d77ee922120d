package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE automations (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				trigger_type VARCHAR(100) NOT NULL,
				trigger_config JSONB,
				actions JSONB NOT NULL DEFAULT '[]',
				status VARCHAR(50) NOT NULL CHECK (status IN ('draft', 'active', 'paused')),
				total_executions INT NOT NULL DEFAULT 0,
				successful_executions INT NOT NULL DEFAULT 0,
				failed_executions INT NOT NULL DEFAULT 0,
				last_executed_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_automations_status ON automations(status);
			CREATE INDEX idx_automations_trigger_type ON automations(trigger_type);

			CREATE TABLE executions (
				id VARCHAR(255) PRIMARY KEY,
				automation_id VARCHAR(255) NOT NULL,
				subject_id VARCHAR(255) NOT NULL DEFAULT '',
				donation_id VARCHAR(255),
				status VARCHAR(50) NOT NULL CHECK (status IN ('running', 'waiting', 'completed', 'failed')),
				current_action_order INT NOT NULL DEFAULT 0,
				actions_executed INT NOT NULL DEFAULT 0,
				scheduled_for TIMESTAMP WITH TIME ZONE,
				results JSONB NOT NULL DEFAULT '[]',
				error_message TEXT,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				completed_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_executions_automation_id ON executions(automation_id);
			CREATE INDEX idx_executions_status_scheduled_for ON executions(status, scheduled_for);

			CREATE TABLE subjects (
				id VARCHAR(255) PRIMARY KEY,
				first_name VARCHAR(255) NOT NULL DEFAULT '',
				last_name VARCHAR(255) NOT NULL DEFAULT '',
				email VARCHAR(255),
				tags JSONB NOT NULL DEFAULT '[]',
				status VARCHAR(50) NOT NULL DEFAULT 'active',
				total_donations NUMERIC(12,2) NOT NULL DEFAULT 0,
				donation_count INT NOT NULL DEFAULT 0,
				recurring_donor BOOLEAN NOT NULL DEFAULT FALSE,
				last_activity_at TIMESTAMP WITH TIME ZONE,
				last_donation_at TIMESTAMP WITH TIME ZONE,
				birth_date DATE,
				owner_id VARCHAR(255)
			);

			CREATE INDEX idx_subjects_status_last_activity ON subjects(status, last_activity_at);
			CREATE INDEX idx_subjects_birth_date ON subjects(birth_date);

			CREATE TABLE donations (
				id VARCHAR(255) PRIMARY KEY,
				subject_id VARCHAR(255) NOT NULL,
				amount NUMERIC(12,2) NOT NULL,
				status VARCHAR(50) NOT NULL DEFAULT 'completed',
				recurring BOOLEAN NOT NULL DEFAULT FALSE,
				received_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_donations_subject_id ON donations(subject_id);
			CREATE INDEX idx_donations_status_received_at ON donations(status, received_at);

			CREATE TABLE communications (
				id SERIAL PRIMARY KEY,
				subject_id VARCHAR(255) NOT NULL,
				channel VARCHAR(50) NOT NULL,
				status VARCHAR(50) NOT NULL,
				subject_line TEXT,
				automation_id VARCHAR(255),
				sent_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_communications_subject_id ON communications(subject_id);
		`,
	}
}
