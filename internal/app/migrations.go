package app

// SQL-миграции схемы. Каждая миграция выполняется один раз,
// версии регистрируются в schema_migrations.

var migration001Users = `
CREATE TABLE IF NOT EXISTS users (
	id            BIGSERIAL PRIMARY KEY,
	telegram_id   BIGINT NOT NULL UNIQUE,
	openid        TEXT,
	username      TEXT,
	nickname      TEXT,
	avatar_url    TEXT,
	role          TEXT NOT NULL DEFAULT 'user',
	is_active     BOOLEAN NOT NULL DEFAULT TRUE,
	points        BIGINT NOT NULL DEFAULT 0,
	last_login_at TIMESTAMPTZ,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_users_username ON users (LOWER(username));
`

var migration002Points = `
CREATE TABLE IF NOT EXISTS point_grants (
	id          BIGSERIAL PRIMARY KEY,
	user_id     BIGINT NOT NULL REFERENCES users(id),
	amount      BIGINT NOT NULL CHECK (amount > 0),
	source      TEXT NOT NULL,
	source_id   BIGINT,
	acquired_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	expires_at  TIMESTAMPTZ,
	status      TEXT NOT NULL DEFAULT 'active',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_point_grants_fifo
	ON point_grants (user_id, acquired_at, id) WHERE status = 'active';
CREATE INDEX IF NOT EXISTS idx_point_grants_expiry
	ON point_grants (expires_at) WHERE status = 'active' AND expires_at IS NOT NULL;

CREATE TABLE IF NOT EXISTS point_debits (
	id         BIGSERIAL PRIMARY KEY,
	user_id    BIGINT NOT NULL REFERENCES users(id),
	amount     BIGINT NOT NULL CHECK (amount > 0),
	reason     TEXT NOT NULL,
	remark     TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_point_debits_user ON point_debits (user_id, created_at DESC);
`

var migration003Memberships = `
CREATE TABLE IF NOT EXISTS membership_packages (
	id            BIGSERIAL PRIMARY KEY,
	name          TEXT NOT NULL,
	description   TEXT,
	price         BIGINT NOT NULL DEFAULT 0,
	duration_days INT,
	level         INT,
	tier          TEXT NOT NULL,
	features      JSONB NOT NULL DEFAULT '[]',
	is_active     BOOLEAN NOT NULL DEFAULT TRUE,
	order_index   INT NOT NULL DEFAULT 0,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS user_memberships (
	id         BIGSERIAL PRIMARY KEY,
	user_id    BIGINT NOT NULL REFERENCES users(id),
	package_id BIGINT REFERENCES membership_packages(id),
	tier       TEXT NOT NULL,
	start_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	expiry_at  TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_user_memberships_latest
	ON user_memberships (user_id, created_at DESC, id DESC);
`

var migration004Catalog = `
CREATE TABLE IF NOT EXISTS categories (
	id         BIGSERIAL PRIMARY KEY,
	name       TEXT NOT NULL,
	level      INT NOT NULL,
	grade      INT,
	subject    TEXT,
	parent_id  BIGINT,
	sort_order INT NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_categories_parent ON categories (parent_id);

CREATE TABLE IF NOT EXISTS materials (
	id             BIGSERIAL PRIMARY KEY,
	title          TEXT NOT NULL,
	description    TEXT,
	file_url       TEXT,
	price          BIGINT NOT NULL DEFAULT 0,
	grade          INT,
	subject        TEXT,
	subject_id     BIGINT,
	category_id    BIGINT NOT NULL,
	is_free        BOOLEAN NOT NULL DEFAULT FALSE,
	status         TEXT NOT NULL DEFAULT 'published',
	download_count BIGINT NOT NULL DEFAULT 0,
	view_count     BIGINT NOT NULL DEFAULT 0,
	page_count     INT,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_materials_category ON materials (category_id) WHERE status = 'published';
`

var migration005Exchanges = `
CREATE TABLE IF NOT EXISTS semester_exchanges (
	id           BIGSERIAL PRIMARY KEY,
	user_id      BIGINT NOT NULL REFERENCES users(id),
	semester_id  BIGINT NOT NULL,
	points_spent BIGINT NOT NULL,
	debit_id     BIGINT,
	exchanged_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	active       BOOLEAN NOT NULL DEFAULT TRUE
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_semester_exchanges_active
	ON semester_exchanges (user_id, semester_id) WHERE active;
CREATE INDEX IF NOT EXISTS idx_semester_exchanges_user ON semester_exchanges (user_id);
`

var migration006Access = `
CREATE TABLE IF NOT EXISTS download_logs (
	id          BIGSERIAL PRIMARY KEY,
	user_id     BIGINT NOT NULL REFERENCES users(id),
	material_id BIGINT NOT NULL,
	access_type TEXT NOT NULL,
	expiry_at   TIMESTAMPTZ,
	exchange_id BIGINT,
	order_id    BIGINT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (user_id, material_id)
);
CREATE INDEX IF NOT EXISTS idx_download_logs_exchange ON download_logs (exchange_id);
`

var migration007Orders = `
CREATE TABLE IF NOT EXISTS orders (
	id                 BIGSERIAL PRIMARY KEY,
	order_no           TEXT NOT NULL UNIQUE,
	user_id            BIGINT NOT NULL REFERENCES users(id),
	order_type         TEXT NOT NULL,
	amount             BIGINT NOT NULL DEFAULT 0,
	status             TEXT NOT NULL DEFAULT 'pending',
	payment_method     TEXT,
	paid_at            TIMESTAMPTZ,
	material_id        BIGINT,
	package_id         BIGINT,
	user_membership_id BIGINT,
	points_amount      BIGINT,
	points_expiry_days INT,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_orders_user ON orders (user_id, created_at DESC);
`

var migration008Site = `
CREATE TABLE IF NOT EXISTS notices (
	id            BIGSERIAL PRIMARY KEY,
	title         TEXT NOT NULL,
	content       TEXT NOT NULL,
	is_active     BOOLEAN NOT NULL DEFAULT TRUE,
	display_order INT NOT NULL DEFAULT 0,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

var migration009Admin = `
CREATE TABLE IF NOT EXISTS admin_sessions (
	id               BIGSERIAL PRIMARY KEY,
	user_id          BIGINT NOT NULL,
	session_token    TEXT NOT NULL,
	authenticated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	expires_at       TIMESTAMPTZ NOT NULL,
	last_activity    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	is_active        BOOLEAN NOT NULL DEFAULT TRUE
);
CREATE INDEX IF NOT EXISTS idx_admin_sessions_user ON admin_sessions (user_id, is_active);

CREATE TABLE IF NOT EXISTS admin_login_attempts (
	id           BIGSERIAL PRIMARY KEY,
	user_id      BIGINT NOT NULL,
	success      BOOLEAN NOT NULL,
	attempt_time TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_admin_login_attempts_user ON admin_login_attempts (user_id, attempt_time);
`
